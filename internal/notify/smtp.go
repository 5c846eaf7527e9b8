package notify

import (
	"context"
	"fmt"
	"gradewatch/internal/components/telemetry"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_smtp_send  = "smtp.send"
	report_brevo_send = "brevo.send"
)

var tracer = otel.Tracer("gradewatch/notify")

type SmtpConfig struct {
	Server       string `json:"server" validate:"required"`
	Port         int    `json:"port" validate:"required"`
	EmailAddress string `json:"email_address" validate:"required,email"`
	Password     string `json:"password"`
	SenderName   string `json:"sender_name"`
}

// SMTP sends emails through an SMTP relay.
type SMTP struct {
	config SmtpConfig
	tel    telemetry.API
}

func NewSMTP(config SmtpConfig, tel telemetry.API) SMTP {
	return SMTP{config: config, tel: telemetry.NewScopedAPI("notify", tel)}
}

func (s SMTP) Send(ctx context.Context, mail Email) error {
	_, span := tracer.Start(ctx, "SMTP.Send")
	defer span.End()

	if len(mail.To) == 0 {
		return fmt.Errorf("email %q has no recipients", mail.Subject)
	}

	msg := email.NewEmail()
	msg.From = s.config.EmailAddress
	if s.config.SenderName != "" {
		msg.From = fmt.Sprintf("%s <%s>", s.config.SenderName, s.config.EmailAddress)
	}
	msg.To = mail.To
	msg.Subject = mail.Subject
	msg.HTML = []byte(mail.Html)

	addr := fmt.Sprintf("%s:%d", s.config.Server, s.config.Port)
	err := msg.Send(
		addr,
		smtp.PlainAuth("", s.config.EmailAddress, s.config.Password, s.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = msg.Send(addr, nil)
	}
	if err != nil {
		s.tel.ReportBroken(report_smtp_send, err, addr, mail.Subject)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
