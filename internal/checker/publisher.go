package checker

import (
	"context"
	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/record"
)

const (
	report_publisher_empty     = "publisher.empty"
	report_publisher_published = "publisher.published"
)

// Publisher hands a change set to the notifier as a single batch.
type Publisher struct {
	notifier Notifier
	tel      telemetry.API
}

func NewPublisher(notifier Notifier, tel telemetry.API) Publisher {
	assert.NotNil(notifier)
	assert.NotNil(tel)
	return Publisher{notifier: notifier, tel: telemetry.NewScopedAPI("publisher", tel)}
}

// Publish notifies once with every item, an empty batch only logs.
func (p Publisher) Publish(ctx context.Context, items []record.Item) error {
	if len(items) == 0 {
		p.tel.ReportDebug(report_publisher_empty)
		return nil
	}
	err := p.notifier.Notify(ctx, items)
	if err != nil {
		return err
	}
	p.tel.ReportCount(report_publisher_published, int64(len(items)))
	return nil
}
