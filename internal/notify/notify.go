// Package notify renders change and failure reports and mails them.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"gradewatch/internal/components/assert"
	"gradewatch/internal/record"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Template names.
const (
	TemplateGrades  = "grades.html"
	TemplateContent = "content.html"
	TemplateFailure = "failure.html"
)

// Email is a rendered message.
type Email struct {
	To      []string
	Subject string
	Html    string
}

// Sender delivers rendered emails.
type Sender interface {
	Send(ctx context.Context, mail Email) error
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, data)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Mailer turns a batch of changed items into one email.
type Mailer struct {
	sender   Sender
	to       []string
	subject  string
	template string
}

func NewMailer(sender Sender, to []string, subject, templateName string) Mailer {
	assert.NotNil(sender)
	assert.NotEmptyStr(subject)
	assert.NotEmptyStr(templateName)
	return Mailer{sender: sender, to: to, subject: subject, template: templateName}
}

func (m Mailer) Notify(ctx context.Context, items []record.Item) error {
	html, err := render(m.template, struct{ Items []record.Item }{Items: items})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Email{To: m.to, Subject: m.subject, Html: html})
}

// Failure describes a failed run.
type Failure struct {
	Domain string
	RunId  string
	At     string
	Error  string
}

// FailureMailer mails failure reports.
type FailureMailer struct {
	sender  Sender
	to      []string
	subject string
}

func NewFailureMailer(sender Sender, to []string, subject string) FailureMailer {
	assert.NotNil(sender)
	assert.NotEmptyStr(subject)
	return FailureMailer{sender: sender, to: to, subject: subject}
}

func (m FailureMailer) NotifyFailure(ctx context.Context, failure Failure) error {
	html, err := render(TemplateFailure, failure)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Email{
		To:      m.to,
		Subject: fmt.Sprintf("%s (%s)", m.subject, failure.Domain),
		Html:    html,
	})
}
