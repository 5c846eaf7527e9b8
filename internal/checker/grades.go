package checker

import (
	"context"
	"fmt"
	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/reconcile"
	"gradewatch/internal/record"
	"gradewatch/internal/store"
)

// GradeSource scrapes the grade portal.
type GradeSource interface {
	Login(ctx context.Context) error
	// FullItems returns the complete record of every graded course.
	FullItems(ctx context.Context) ([]record.Item, error)
	// PartialItems returns the provisional grades of the running term.
	PartialItems(ctx context.Context) ([]record.Item, error)
}

type GradesOptions struct {
	Source   GradeSource
	Store    store.RecordStore
	Engine   reconcile.Engine
	Notifier Notifier
	// Failures may be nil, failed runs are then only logged.
	Failures FailureNotifier
	// DryRun reconciles and notifies without saving.
	DryRun bool
	Time   chrono.TimeAPI
	Tel    telemetry.API
}

type Grades struct {
	source    GradeSource
	store     store.RecordStore
	engine    reconcile.Engine
	publisher Publisher
	dryRun    bool
	runner    runner
	tel       telemetry.API
}

func NewGrades(opts GradesOptions) Grades {
	assert.NotNil(opts.Source)
	assert.NotNil(opts.Store)
	assert.NotNil(opts.Notifier)

	runner := newRunner("grades", opts.Failures, opts.Time, opts.Tel)
	return Grades{
		source:    opts.Source,
		store:     opts.Store,
		engine:    opts.Engine,
		publisher: NewPublisher(opts.Notifier, runner.tel),
		dryRun:    opts.DryRun,
		runner:    runner,
		tel:       runner.tel,
	}
}

func (g Grades) Run(ctx context.Context) error {
	return g.runner.run(ctx, g.check)
}

func (g Grades) check(ctx context.Context) error {
	err := g.source.Login(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	full, err := g.source.FullItems(ctx)
	if err != nil {
		return fmt.Errorf("scrape full feed: %w", err)
	}
	partial, err := g.source.PartialItems(ctx)
	if err != nil {
		return fmt.Errorf("scrape partial feed: %w", err)
	}

	records, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	result, err := g.engine.Grades(records, full, partial)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if !result.HasChanges() {
		g.tel.ReportDebug(report_checker_no_changes, telemetry.KV{Key: "run_id", Value: RunId(ctx)})
		return nil
	}

	if g.dryRun {
		g.tel.ReportDebug(report_checker_dry_run, telemetry.KV{Key: "records", Value: len(result.Records)})
	} else {
		err = g.store.Save(ctx, result.Records)
		if err != nil {
			return fmt.Errorf("save records: %w", err)
		}
	}

	err = g.publisher.Publish(ctx, result.ChangedItems())
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
