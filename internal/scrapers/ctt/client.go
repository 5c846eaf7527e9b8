// Package ctt scrapes the student grade portal.
package ctt

import (
	"context"
	"errors"
	"fmt"
	"gradewatch/internal/components/telemetry"
	"gradewatch/lib/htmlutil"
	"gradewatch/lib/restyutil"
	"net/http/cookiejar"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("gradewatch/scrapers/ctt")

var ErrInvalidCredentials = errors.New("incorrect username or password")

const (
	defaultPortalUrl      = "https://ctt.hust.edu.vn/"
	defaultMarksUrl       = "https://dt-ctt.hust.edu.vn/Students/StudentCourseMarks.aspx"
	defaultProvisionalUrl = "https://dt-ctt.hust.edu.vn/Students/StudentCheckInputGradeTerm.aspx"

	// the identity provider bounces through a handful of auto-posting forms
	maxLoginHops = 6
)

const (
	report_ctt_login_error  = "ctt.login.error-text"
	report_ctt_full_rows    = "ctt.full.rows"
	report_ctt_partial_rows = "ctt.partial.rows"
)

type Config struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	// The following override the portal's urls.
	PortalUrl      string `json:"portal_url"`
	MarksUrl       string `json:"marks_url"`
	ProvisionalUrl string `json:"provisional_url"`
	// RequestsPerSecond throttles every request made by the client, it
	// defaults to 2.
	RequestsPerSecond float64 `json:"requests_per_second"`
}

func (c Config) withDefaults() Config {
	if c.PortalUrl == "" {
		c.PortalUrl = defaultPortalUrl
	}
	if c.MarksUrl == "" {
		c.MarksUrl = defaultMarksUrl
	}
	if c.ProvisionalUrl == "" {
		c.ProvisionalUrl = defaultProvisionalUrl
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	return c
}

type Client struct {
	http   *resty.Client
	config Config
	tel    telemetry.API
}

func NewClient(config Config, tel telemetry.API) (*Client, error) {
	config = config.withDefaults()
	tel = telemetry.NewScopedAPI("ctt", tel)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	limiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)

	client := resty.New().
		SetCookieJar(jar).
		SetTimeout(time.Second*30).
		SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	telemetry.InstrumentResty(client, tel)

	return &Client{http: client, config: config, tel: tel}, nil
}

// DumpTo writes every http exchange of the client to output.
func (c *Client) DumpTo(output restyutil.Output) {
	restyutil.Dump(c.http, "ctt", output)
}

func credentialsForm(page restyutil.Page) *goquery.Selection {
	return page.Doc.Find("input#passwordInput").Closest("form")
}

func autoPostForm(page restyutil.Page) *goquery.Selection {
	return page.Doc.Find("input[name=SAMLResponse], input[name=wresult]").
		Closest("form").
		First()
}

// Login signs into the portal through its identity provider, following the
// provider's hidden auto-posting forms back to the portal.
func (c *Client) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Client.Login")
	defer span.End()

	err := c.login(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to login")
	}
	return err
}

func (c *Client) login(ctx context.Context) error {
	page, err := restyutil.GetPage(ctx, c.http, c.config.PortalUrl)
	if err != nil {
		return fmt.Errorf("open portal: %w", err)
	}
	href, ok := page.Doc.Find("a#loginLink").Attr("href")
	if !ok {
		return fmt.Errorf("could not find login link on %s", page.Url)
	}
	loginUrl, err := page.Resolve(href)
	if err != nil {
		return err
	}
	page, err = restyutil.GetPage(ctx, c.http, loginUrl)
	if err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	submitted := false
	for hop := 0; hop < maxLoginHops; hop++ {
		var form htmlutil.Form

		if sel := credentialsForm(page); sel.Length() > 0 {
			if submitted {
				errorText := htmlutil.Text(page.Doc.Find("#errorText"))
				if errorText != "" {
					c.tel.ReportWarning(report_ctt_login_error, errorText)
				}
				return ErrInvalidCredentials
			}
			form, err = htmlutil.ReadForm(page.Url, sel)
			if err != nil {
				return err
			}
			form.Values.Set(sel.Find("input#userNameInput").AttrOr("name", "UserName"), c.config.Username)
			form.Values.Set(sel.Find("input#passwordInput").AttrOr("name", "Password"), c.config.Password)
			if form.Values.Get("AuthMethod") == "" {
				form.Values.Set("AuthMethod", "FormsAuthentication")
			}
			submitted = true
		} else if sel := autoPostForm(page); sel.Length() > 0 {
			form, err = htmlutil.ReadForm(page.Url, sel)
			if err != nil {
				return err
			}
		} else {
			if !submitted {
				return fmt.Errorf("could not find login form on %s", page.Url)
			}
			c.tel.ReportDebug("logged in", page.Url.String())
			return nil
		}

		page, err = restyutil.SubmitForm(ctx, c.http, form)
		if err != nil {
			return fmt.Errorf("submit %s: %w", form.Action, err)
		}
	}
	return fmt.Errorf("login did not settle after %d forms", maxLoginHops)
}
