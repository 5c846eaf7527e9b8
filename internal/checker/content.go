package checker

import (
	"context"
	"errors"
	"fmt"
	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/reconcile"
	"gradewatch/internal/record"
	"gradewatch/internal/store"
)

const report_checker_bootstrap = "run.bootstrap"

// ContentSource scrapes the content portal.
type ContentSource interface {
	Login(ctx context.Context) error
	Items(ctx context.Context) ([]reconcile.ContentItem, error)
}

type ContentOptions struct {
	Source   ContentSource
	Store    store.ContentStore
	Notifier Notifier
	// Failures may be nil, failed runs are then only logged.
	Failures FailureNotifier
	// Bootstrap starts from an empty state when the store holds none,
	// otherwise a missing state fails the run.
	Bootstrap bool
	DryRun    bool
	Time      chrono.TimeAPI
	Tel       telemetry.API
}

type Content struct {
	source    ContentSource
	store     store.ContentStore
	publisher Publisher
	bootstrap bool
	dryRun    bool
	time      chrono.TimeAPI
	runner    runner
	tel       telemetry.API
}

func NewContent(opts ContentOptions) Content {
	assert.NotNil(opts.Source)
	assert.NotNil(opts.Store)
	assert.NotNil(opts.Notifier)

	runner := newRunner("content", opts.Failures, opts.Time, opts.Tel)
	return Content{
		source:    opts.Source,
		store:     opts.Store,
		publisher: NewPublisher(opts.Notifier, runner.tel),
		bootstrap: opts.Bootstrap,
		dryRun:    opts.DryRun,
		time:      opts.Time,
		runner:    runner,
		tel:       runner.tel,
	}
}

func (c Content) Run(ctx context.Context) error {
	return c.runner.run(ctx, c.check)
}

func (c Content) check(ctx context.Context) error {
	err := c.source.Login(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	scraped, err := c.source.Items(ctx)
	if err != nil {
		return fmt.Errorf("scrape items: %w", err)
	}

	state, err := c.store.Load(ctx)
	if errors.Is(err, store.ErrDocumentNotFound) && c.bootstrap {
		c.tel.ReportWarning(report_checker_bootstrap, err)
		state, err = store.ContentState{}, nil
	}
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	result, err := reconcile.Content(state.Items, scraped)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if !result.Changed {
		c.tel.ReportDebug(report_checker_no_changes, telemetry.KV{Key: "run_id", Value: RunId(ctx)})
		return nil
	}

	if c.dryRun {
		c.tel.ReportDebug(report_checker_dry_run, telemetry.KV{Key: "items", Value: len(result.Ids)})
	} else {
		err = c.store.Save(ctx, store.ContentState{
			Items:      result.Ids,
			LastUpdate: c.time.Now(),
		})
		if err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	items := make([]record.Item, len(result.New))
	for i, item := range result.New {
		items[i] = item.Item()
	}
	err = c.publisher.Publish(ctx, items)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
