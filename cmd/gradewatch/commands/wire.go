package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"gradewatch/internal/checker"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/notify"
	"gradewatch/internal/reconcile"
	"gradewatch/internal/scrapers/ctt"
	"gradewatch/internal/scrapers/syllabus"
	"gradewatch/internal/store"
	"gradewatch/internal/store/gcsdoc"
	"gradewatch/internal/store/sheets"
	"gradewatch/internal/store/sqlitestore"
	"gradewatch/lib/restyutil"
	"io"
	"os"
)

const report_app_no_transport = "app.no-email-transport"

var (
	errGradesNotConfigured  = errors.New("grades is not configured")
	errContentNotConfigured = errors.New("content is not configured")
)

// app holds what every command builds its collaborators from.
type app struct {
	config Config
	dryRun bool
	dump   restyutil.Output
	out    io.Writer
	time   chrono.TimeAPI
	tel    telemetry.API

	closers []io.Closer
}

func newApp(config Config, dryRun bool, dumpDir string) (*app, error) {
	clock, err := chrono.NewStandardTime(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	a := &app{
		config: config,
		dryRun: dryRun,
		out:    os.Stdout,
		time:   clock,
		tel:    telemetry.SlogAPI{},
	}
	if dumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(dumpDir)
		if err != nil {
			return nil, fmt.Errorf("http dump directory: %w", err)
		}
		a.dump = output
	}
	return a, nil
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err := a.closers[i].Close()
		if err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// sender picks the configured email transport, a dry run or a config
// without one prints emails instead.
func (a *app) sender() notify.Sender {
	email := a.config.Email
	switch {
	case a.dryRun:
		return notify.Writer{Out: a.out}
	case email.Brevo != nil:
		return notify.NewBrevo(*email.Brevo, a.tel)
	case email.Smtp != nil:
		return notify.NewSMTP(*email.Smtp, a.tel)
	}
	a.tel.ReportWarning(report_app_no_transport, "emails are printed to stdout")
	return notify.Writer{Out: a.out}
}

func (a *app) failures(sender notify.Sender) checker.FailureNotifier {
	if len(a.config.FailureRecipients) == 0 {
		return nil
	}
	return notify.NewFailureMailer(sender, a.config.FailureRecipients, a.config.FailureSubject)
}

func (a *app) openSqlite(config sqlitestore.Config) (*sql.DB, error) {
	db, err := config.OpenDB()
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db)
	return db, nil
}

func (a *app) recordStore(ctx context.Context) (store.RecordStore, error) {
	config := a.config.Grades.Store
	if config.Sheets != nil {
		return sheets.New(ctx, *config.Sheets, a.tel)
	}
	db, err := a.openSqlite(*config.Sqlite)
	if err != nil {
		return nil, err
	}
	return sqlitestore.NewRecords(db, a.tel), nil
}

func (a *app) contentStore(ctx context.Context) (store.ContentStore, error) {
	config := a.config.Content.Store
	if config.Gcs != nil {
		doc, err := gcsdoc.New(ctx, *config.Gcs, a.tel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, doc)
		return doc, nil
	}
	db, err := a.openSqlite(*config.Sqlite)
	if err != nil {
		return nil, err
	}
	return sqlitestore.NewContent(db, a.tel), nil
}

func (a *app) grades(ctx context.Context) (checker.Grades, error) {
	config := a.config.Grades
	if config == nil {
		return checker.Grades{}, errGradesNotConfigured
	}

	schema, err := config.Schema()
	if err != nil {
		return checker.Grades{}, err
	}
	engine, err := reconcile.NewEngine(schema, a.tel)
	if err != nil {
		return checker.Grades{}, err
	}
	source, err := ctt.NewClient(config.Portal, a.tel)
	if err != nil {
		return checker.Grades{}, err
	}
	if a.dump != nil {
		source.DumpTo(a.dump)
	}
	records, err := a.recordStore(ctx)
	if err != nil {
		return checker.Grades{}, fmt.Errorf("grades store: %w", err)
	}

	sender := a.sender()
	return checker.NewGrades(checker.GradesOptions{
		Source:   source,
		Store:    records,
		Engine:   engine,
		Notifier: notify.NewMailer(sender, config.Recipients, config.Subject, notify.TemplateGrades),
		Failures: a.failures(sender),
		DryRun:   a.dryRun,
		Time:     a.time,
		Tel:      a.tel,
	}), nil
}

func (a *app) content(ctx context.Context) (checker.Content, error) {
	config := a.config.Content
	if config == nil {
		return checker.Content{}, errContentNotConfigured
	}

	source, err := syllabus.NewClient(config.Portal, a.tel)
	if err != nil {
		return checker.Content{}, err
	}
	if a.dump != nil {
		source.DumpTo(a.dump)
	}
	state, err := a.contentStore(ctx)
	if err != nil {
		return checker.Content{}, fmt.Errorf("content store: %w", err)
	}

	sender := a.sender()
	return checker.NewContent(checker.ContentOptions{
		Source:    source,
		Store:     state,
		Notifier:  notify.NewMailer(sender, config.Recipients, config.Subject, notify.TemplateContent),
		Failures:  a.failures(sender),
		Bootstrap: config.Bootstrap,
		DryRun:    a.dryRun,
		Time:      a.time,
		Tel:       a.tel,
	}), nil
}
