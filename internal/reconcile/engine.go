package reconcile

import (
	"fmt"
	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/record"
	"gradewatch/lib/textutil"

	"github.com/antzucaro/matchr"
)

const (
	report_engine_best_term_miss = "engine.best-term-miss"
	report_engine_changed        = "engine.changed"
	report_engine_appended       = "engine.appended"
)

// similarCourseThreshold is the Jaro-Winkler similarity above which an
// unmatched course name is reported alongside its closest known name.
const similarCourseThreshold = 0.85

// Engine reconciles scraped grade items against the stored records.
type Engine struct {
	schema record.Schema
	tel    telemetry.API
}

// NewEngine fails when schema lacks any attribute the grade feeds use.
func NewEngine(schema record.Schema, tel telemetry.API) (Engine, error) {
	assert.NotNil(tel)

	for _, shape := range []FeedShape{FullFeed, PartialFeed} {
		for _, attr := range shape.attrs() {
			if _, ok := schema.Position(attr); !ok {
				return Engine{}, fmt.Errorf("schema has no column for %q: %w", attr, record.ErrUnknownAttribute)
			}
		}
	}

	return Engine{
		schema: schema,
		tel:    telemetry.NewScopedAPI("reconcile", tel),
	}, nil
}

// Result is the outcome of one reconciliation.
type Result struct {
	// Records is the whole store: stored records in their original order
	// followed by the records created during the run.
	Records []*record.Record
	// Changed holds every record mutated by the run, in the order they
	// first changed.
	Changed []*record.Record
	// Appended is how many records were created.
	Appended int

	schema record.Schema
}

func (r Result) HasChanges() bool {
	return len(r.Changed) > 0
}

// ChangedItems materializes the changed records as items.
func (r Result) ChangedItems() []record.Item {
	items := make([]record.Item, len(r.Changed))
	for i, changed := range r.Changed {
		items[i] = r.schema.ToItem(*changed)
	}
	return items
}

type changeSet struct {
	seen    map[*record.Record]struct{}
	ordered []*record.Record
}

func (c *changeSet) add(r *record.Record) {
	if c.seen == nil {
		c.seen = make(map[*record.Record]struct{})
	}
	if _, ok := c.seen[r]; ok {
		return
	}
	c.seen[r] = struct{}{}
	c.ordered = append(c.ordered, r)
}

// run holds the state of one reconciliation.
type run struct {
	engine  Engine
	store   []*record.Record
	changes changeSet
	created int
}

// Grades merges the full feed and then the partial feed into records.
// records is not modified in place as a slice, but the records it points to
// are mutated. Nothing is returned on error.
func (e Engine) Grades(records []*record.Record, full, partial []record.Item) (Result, error) {
	r := &run{
		engine: e,
		store:  make([]*record.Record, len(records)),
	}
	copy(r.store, records)

	byCourseId := NewIndex(e.schema, record.AttrCourseId, r.store)
	for i, item := range full {
		err := r.reconcile(FullFeed, byCourseId, item, MatchExact)
		if err != nil {
			return Result{}, fmt.Errorf("full feed item %d: %w", i, err)
		}
	}

	// built after the full feed so it sees the records the full feed created
	byCourseName := NewIndex(e.schema, record.AttrCourseName, r.store)
	for i, item := range partial {
		err := r.reconcile(PartialFeed, byCourseName, item, MatchBestTerm)
		if err != nil {
			return Result{}, fmt.Errorf("partial feed item %d: %w", i, err)
		}
	}

	e.tel.ReportCount(report_engine_changed, int64(len(r.changes.ordered)))
	e.tel.ReportCount(report_engine_appended, int64(r.created))

	return Result{
		Records:  r.store,
		Changed:  r.changes.ordered,
		Appended: r.created,
		schema:   e.schema,
	}, nil
}

type matchFunc = func(record.Schema, *Index, record.Item) (*record.Record, error)

func (r *run) reconcile(shape FeedShape, idx *Index, item record.Item, match matchFunc) error {
	schema := r.engine.schema

	target, err := match(schema, idx, item)
	if err != nil {
		return err
	}
	if target == nil {
		if shape.Name == PartialFeed.Name {
			r.engine.reportClosest(idx, item[shape.Key])
		}
		target, err = r.create(shape, idx, item)
		if err != nil {
			return err
		}
	}

	changed, err := Merge(schema, shape, target, item)
	if err != nil {
		return err
	}
	if changed {
		r.changes.add(target)
	}
	return nil
}

// create appends a new record holding the item's key to the store and
// the index.
func (r *run) create(shape FeedShape, idx *Index, item record.Item) (*record.Record, error) {
	created := &record.Record{}
	_, err := r.engine.schema.Set(created, idx.Attr(), item[idx.Attr()])
	if err != nil {
		return nil, err
	}
	r.store = append(r.store, created)
	idx.Add(created)
	r.created++

	r.engine.tel.ReportDebug(
		"create record",
		telemetry.KV{Key: "feed", Value: shape.Name},
		telemetry.KV{Key: idx.Attr(), Value: item[idx.Attr()]},
		telemetry.KV{Key: record.AttrTerm, Value: item[record.AttrTerm]},
	)
	return created, nil
}

func (e Engine) reportClosest(idx *Index, name string) {
	closest := ""
	similarity := 0.0
	normalized := textutil.NormalizeName(name)
	for _, known := range idx.Keys() {
		score := matchr.JaroWinkler(normalized, textutil.NormalizeName(known), false)
		if score > similarity {
			closest = known
			similarity = score
		}
	}
	if similarity < similarCourseThreshold {
		return
	}
	e.tel.ReportWarning(
		report_engine_best_term_miss,
		telemetry.KV{Key: "course_name", Value: name},
		telemetry.KV{Key: "closest", Value: closest},
		telemetry.KV{Key: "similarity", Value: similarity},
	)
}
