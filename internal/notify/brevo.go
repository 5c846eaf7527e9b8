package notify

import (
	"context"
	"fmt"
	"gradewatch/internal/components/telemetry"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

const defaultBrevoBaseUrl = "https://api.brevo.com/v3"

type BrevoConfig struct {
	ApiKey      string `json:"api_key" validate:"required"`
	SenderEmail string `json:"sender_email" validate:"required,email"`
	SenderName  string `json:"sender_name"`
	// BaseUrl overrides the api endpoint.
	BaseUrl string `json:"base_url"`
}

// Brevo sends emails through the Brevo (formerly Sendinblue) transactional
// email api.
type Brevo struct {
	http   *resty.Client
	config BrevoConfig
	tel    telemetry.API
}

func NewBrevo(config BrevoConfig, tel telemetry.API) Brevo {
	tel = telemetry.NewScopedAPI("notify", tel)

	baseUrl := config.BaseUrl
	if baseUrl == "" {
		baseUrl = defaultBrevoBaseUrl
	}
	client := resty.New().
		SetBaseURL(baseUrl).
		SetTimeout(time.Second*30).
		SetHeader("api-key", config.ApiKey).
		SetHeader("accept", "application/json")
	telemetry.InstrumentResty(client, tel)

	return Brevo{http: client, config: config, tel: tel}
}

type brevoContact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmail struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HtmlContent string         `json:"htmlContent"`
}

func (b Brevo) Send(ctx context.Context, mail Email) error {
	ctx, span := tracer.Start(ctx, "Brevo.Send")
	defer span.End()

	if len(mail.To) == 0 {
		return fmt.Errorf("email %q has no recipients", mail.Subject)
	}

	to := make([]brevoContact, len(mail.To))
	for i, addr := range mail.To {
		to[i] = brevoContact{Email: addr}
	}

	res, err := b.http.R().
		SetContext(ctx).
		SetBody(brevoEmail{
			Sender:      brevoContact{Name: b.config.SenderName, Email: b.config.SenderEmail},
			To:          to,
			Subject:     mail.Subject,
			HtmlContent: mail.Html,
		}).
		Post("/smtp/email")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reach brevo")
		return err
	}
	if res.IsError() {
		err = fmt.Errorf("brevo responded %s: %s", res.Status(), res.String())
		b.tel.ReportBroken(report_brevo_send, err, mail.Subject)
		span.RecordError(err)
		span.SetStatus(codes.Error, "brevo rejected the email")
		return err
	}
	return nil
}
