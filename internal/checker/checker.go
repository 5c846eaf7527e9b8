// Package checker runs one check of a domain: scrape, load the stored state,
// reconcile, persist and notify.
package checker

import (
	"context"
	"fmt"
	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/notify"
	"gradewatch/internal/record"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("gradewatch/checker")

const (
	report_checker_run_failed     = "run.failed"
	report_checker_failure_notify = "run.failure-notify"
	report_checker_no_changes     = "run.no-changes"
	report_checker_dry_run        = "run.dry-run"
)

// Notifier delivers a batch of changed items.
type Notifier interface {
	Notify(ctx context.Context, items []record.Item) error
}

// FailureNotifier delivers the report of a failed run.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, failure notify.Failure) error
}

type runIdKey struct{}

// RunId returns the id of the run ctx belongs to.
func RunId(ctx context.Context) string {
	id, _ := ctx.Value(runIdKey{}).(string)
	return id
}

// runner holds what every domain's run shares: the run id, the span, the
// timing and the failure path.
type runner struct {
	domain   string
	failures FailureNotifier
	time     chrono.TimeAPI
	tel      telemetry.API
}

func newRunner(domain string, failures FailureNotifier, clock chrono.TimeAPI, tel telemetry.API) runner {
	assert.NotNil(clock)
	assert.NotNil(tel)
	return runner{
		domain:   domain,
		failures: failures,
		time:     clock,
		tel:      telemetry.NewScopedAPI(domain, tel),
	}
}

func (r runner) run(ctx context.Context, check func(ctx context.Context) error) error {
	runId := uuid.NewString()
	ctx = context.WithValue(ctx, runIdKey{}, runId)
	ctx, span := tracer.Start(
		ctx, "checker:"+r.domain,
		trace.WithAttributes(
			attribute.String("run_id", runId),
			attribute.String("domain", r.domain),
		),
	)
	defer span.End()

	start := r.time.Now()
	r.tel.ReportDebug("running check", telemetry.KV{Key: "run_id", Value: runId})

	err := check(ctx)
	elapsed := r.time.Now().Sub(start)
	if err == nil {
		r.tel.ReportDebug(
			"check completed",
			telemetry.KV{Key: "run_id", Value: runId},
			telemetry.KV{Key: "elapsed", Value: elapsed.Round(time.Millisecond).String()},
		)
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "check failed")
	r.tel.ReportBroken(
		report_checker_run_failed,
		err,
		telemetry.KV{Key: "run_id", Value: runId},
		telemetry.KV{Key: "elapsed", Value: elapsed.Round(time.Millisecond).String()},
	)

	if r.failures != nil {
		notifyErr := r.failures.NotifyFailure(ctx, notify.Failure{
			Domain: r.domain,
			RunId:  runId,
			At:     start.Format(time.DateTime),
			Error:  err.Error(),
		})
		if notifyErr != nil {
			r.tel.ReportBroken(report_checker_failure_notify, notifyErr, telemetry.KV{Key: "run_id", Value: runId})
		}
	}
	return fmt.Errorf("%s check: %w", r.domain, err)
}
