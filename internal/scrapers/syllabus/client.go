// Package syllabus scrapes the lesson list of a course on the content
// portal.
package syllabus

import (
	"context"
	"errors"
	"fmt"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/reconcile"
	"gradewatch/lib/htmlutil"
	"gradewatch/lib/restyutil"
	"net/http/cookiejar"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("gradewatch/scrapers/syllabus")

var ErrInvalidCredentials = errors.New("incorrect email or password")

const (
	defaultLoginUrl  = "https://www.hieu.tv/login"
	defaultCourseUrl = "https://www.hieu.tv/products/khoa-ck1"
)

const report_syllabus_items = "syllabus.items"

type Config struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	// The following override the portal's urls.
	LoginUrl  string `json:"login_url"`
	CourseUrl string `json:"course_url"`
	// RequestsPerSecond defaults to 2.
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type Client struct {
	http   *resty.Client
	config Config
	tel    telemetry.API
}

func NewClient(config Config, tel telemetry.API) (*Client, error) {
	if config.LoginUrl == "" {
		config.LoginUrl = defaultLoginUrl
	}
	if config.CourseUrl == "" {
		config.CourseUrl = defaultCourseUrl
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 2
	}
	tel = telemetry.NewScopedAPI("syllabus", tel)

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
	restyutil.Dump(c.http, "syllabus", output)
}

func (c *Client) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Client.Login")
	defer span.End()

	page, err := restyutil.GetPage(ctx, c.http, c.config.LoginUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open login page")
		return err
	}

	email := page.Doc.Find("#member_email")
	password := page.Doc.Find("#member_password")
	if email.Length() == 0 || password.Length() == 0 {
		span.SetStatus(codes.Error, "failed to find login form")
		return fmt.Errorf("could not find login form on %s", page.Url)
	}
	form, err := htmlutil.ReadForm(page.Url, email.Closest("form"))
	if err != nil {
		return err
	}
	form.Values.Set(email.AttrOr("name", "member[email]"), c.config.Email)
	form.Values.Set(password.AttrOr("name", "member[password]"), c.config.Password)

	page, err = restyutil.SubmitForm(ctx, c.http, form)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit login form")
		return err
	}
	if page.Doc.Find("#member_password").Length() > 0 {
		span.SetStatus(codes.Error, ErrInvalidCredentials.Error())
		return ErrInvalidCredentials
	}
	return nil
}

func readItem(page restyutil.Page, el *goquery.Selection) (reconcile.ContentItem, error) {
	id := el.AttrOr("id", "")
	if id == "" {
		return reconcile.ContentItem{}, fmt.Errorf("syllabus item has no id")
	}
	href, ok := el.ChildrenFiltered("a").First().Attr("href")
	if !ok {
		return reconcile.ContentItem{}, fmt.Errorf("syllabus item %s has no link", id)
	}
	link, err := page.Resolve(href)
	if err != nil {
		return reconcile.ContentItem{}, fmt.Errorf("syllabus item %s: %w", id, err)
	}
	return reconcile.ContentItem{
		Id:     id,
		Header: htmlutil.Text(el.Find("p.syllabus__title").First()),
		Url:    link,
	}, nil
}

// Items scrapes the lessons of the course in page order.
func (c *Client) Items(ctx context.Context) ([]reconcile.ContentItem, error) {
	ctx, span := tracer.Start(ctx, "Client.Items")
	defer span.End()

	page, err := restyutil.GetPage(ctx, c.http, c.config.CourseUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch course page")
		return nil, err
	}

	elements := page.Doc.Find(".syllabus__item")
	items := make([]reconcile.ContentItem, 0, elements.Length())
	for i := range elements.Nodes {
		item, err := readItem(page, elements.Eq(i))
		if err != nil {
			span.SetStatus(codes.Error, "unexpected syllabus layout")
			return nil, err
		}
		items = append(items, item)
	}

	span.SetAttributes(attribute.Int("items", len(items)))
	c.tel.ReportCount(report_syllabus_items, int64(len(items)))
	return items, nil
}
