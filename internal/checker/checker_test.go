package checker

import (
	"context"
	"errors"
	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/notify"
	"gradewatch/internal/reconcile"
	"gradewatch/internal/record"
	"gradewatch/internal/store"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testTime = chrono.FixedTime{At: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)}

type fakeGradeSource struct {
	loginErr error
	full     []record.Item
	partial  []record.Item
}

func (f fakeGradeSource) Login(context.Context) error {
	return f.loginErr
}

func (f fakeGradeSource) FullItems(context.Context) ([]record.Item, error) {
	return f.full, nil
}

func (f fakeGradeSource) PartialItems(context.Context) ([]record.Item, error) {
	return f.partial, nil
}

type memoryRecords struct {
	records []*record.Record
	saveErr error
	saves   [][]record.Record
}

func (m *memoryRecords) Load(context.Context) ([]*record.Record, error) {
	out := make([]*record.Record, len(m.records))
	for i, r := range m.records {
		copied := append(record.Record(nil), (*r)...)
		out[i] = &copied
	}
	return out, nil
}

func (m *memoryRecords) Save(_ context.Context, records []*record.Record) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	saved := make([]record.Record, len(records))
	for i, r := range records {
		saved[i] = *r
	}
	m.saves = append(m.saves, saved)
	return nil
}

type recordingNotifier struct {
	batches [][]record.Item
	err     error
}

func (r *recordingNotifier) Notify(_ context.Context, items []record.Item) error {
	r.batches = append(r.batches, items)
	return r.err
}

type recordingFailures struct {
	failures []notify.Failure
}

func (r *recordingFailures) NotifyFailure(_ context.Context, failure notify.Failure) error {
	r.failures = append(r.failures, failure)
	return nil
}

func newGrades(t testing.TB, source GradeSource, records *memoryRecords, notifier *recordingNotifier, failures *recordingFailures) Grades {
	engine, err := reconcile.NewEngine(record.MustSchema(record.GradeColumns), &telemetry.Recorder{})
	require.NoError(t, err)
	return NewGrades(GradesOptions{
		Source:   source,
		Store:    records,
		Engine:   engine,
		Notifier: notifier,
		Failures: failures,
		Time:     testTime,
		Tel:      &telemetry.Recorder{},
	})
}

func storedRecords() *memoryRecords {
	return &memoryRecords{records: []*record.Record{
		{"20231", "Algebra", "MI1141", "4", "8.0", "9.0", "0.7"},
	}}
}

func TestGradesNoChanges(t *testing.T) {
	records := storedRecords()
	notifier := &recordingNotifier{}
	failures := &recordingFailures{}

	checker := newGrades(t, fakeGradeSource{
		full: []record.Item{{
			record.AttrTerm:       "20231",
			record.AttrCourseId:   "MI1141",
			record.AttrCourseName: "Algebra",
			record.AttrMidScore:   "8.0",
		}},
	}, records, notifier, failures)

	require.NoError(t, checker.Run(context.Background()))
	require.Empty(t, records.saves)
	require.Empty(t, notifier.batches)
	require.Empty(t, failures.failures)
}

func TestGradesChanged(t *testing.T) {
	records := storedRecords()
	notifier := &recordingNotifier{}
	failures := &recordingFailures{}

	checker := newGrades(t, fakeGradeSource{
		full: []record.Item{
			{
				record.AttrTerm:       "20231",
				record.AttrCourseId:   "MI1141",
				record.AttrCourseName: "Algebra",
				record.AttrEndScore:   "9.5",
			},
			{
				record.AttrTerm:         "20232",
				record.AttrCourseId:     "IT3011",
				record.AttrCourseName:   "Data structures",
				record.AttrCourseCredit: "3",
			},
		},
	}, records, notifier, failures)

	require.NoError(t, checker.Run(context.Background()))

	require.Len(t, records.saves, 1)
	expectedSave := []record.Record{
		{"20231", "Algebra", "MI1141", "4", "8.0", "9.5", "0.7"},
		{"20232", "Data structures", "IT3011", "3"},
	}
	if diff := cmp.Diff(expectedSave, records.saves[0]); diff != "" {
		t.Fatal(diff)
	}

	require.Len(t, notifier.batches, 1)
	batch := notifier.batches[0]
	require.Len(t, batch, 2)
	require.Equal(t, "9.5", batch[0][record.AttrEndScore])
	require.Equal(t, "IT3011", batch[1][record.AttrCourseId])
	require.Empty(t, failures.failures)
}

func TestGradesDryRun(t *testing.T) {
	records := storedRecords()
	notifier := &recordingNotifier{}

	engine, err := reconcile.NewEngine(record.MustSchema(record.GradeColumns), &telemetry.Recorder{})
	require.NoError(t, err)
	checker := NewGrades(GradesOptions{
		Source: fakeGradeSource{full: []record.Item{{
			record.AttrTerm:     "20231",
			record.AttrCourseId: "MI1141",
			record.AttrEndScore: "9.5",
		}}},
		Store:    records,
		Engine:   engine,
		Notifier: notifier,
		DryRun:   true,
		Time:     testTime,
		Tel:      &telemetry.Recorder{},
	})

	require.NoError(t, checker.Run(context.Background()))
	require.Empty(t, records.saves)
	require.Len(t, notifier.batches, 1)
}

func TestGradesScrapeFailure(t *testing.T) {
	records := storedRecords()
	notifier := &recordingNotifier{}
	failures := &recordingFailures{}
	loginErr := errors.New("portal unreachable")

	checker := newGrades(t, fakeGradeSource{loginErr: loginErr}, records, notifier, failures)

	err := checker.Run(context.Background())
	require.ErrorIs(t, err, loginErr)
	require.Empty(t, records.saves)
	require.Empty(t, notifier.batches)

	require.Len(t, failures.failures, 1)
	failure := failures.failures[0]
	require.Equal(t, "grades", failure.Domain)
	require.Equal(t, "2024-01-15 09:30:00", failure.At)
	require.NotEmpty(t, failure.RunId)
	require.Contains(t, failure.Error, "portal unreachable")
}

func TestGradesReconcileFailureSavesNothing(t *testing.T) {
	records := &memoryRecords{records: []*record.Record{
		{"not-a-term", "Algebra", "MI1141"},
	}}
	notifier := &recordingNotifier{}
	failures := &recordingFailures{}

	checker := newGrades(t, fakeGradeSource{
		partial: []record.Item{{record.AttrCourseName: "Algebra", record.AttrMidScore: "7"}},
	}, records, notifier, failures)

	err := checker.Run(context.Background())
	require.ErrorIs(t, err, reconcile.ErrInvalidTerm)
	require.Empty(t, records.saves)
	require.Empty(t, notifier.batches)
	require.Len(t, failures.failures, 1)
}

func TestGradesSaveFailureDoesNotNotify(t *testing.T) {
	records := storedRecords()
	records.saveErr = errors.New("quota exceeded")
	notifier := &recordingNotifier{}
	failures := &recordingFailures{}

	checker := newGrades(t, fakeGradeSource{
		full: []record.Item{{
			record.AttrTerm:     "20231",
			record.AttrCourseId: "MI1141",
			record.AttrEndScore: "9.5",
		}},
	}, records, notifier, failures)

	err := checker.Run(context.Background())
	require.ErrorContains(t, err, "quota exceeded")
	require.Empty(t, notifier.batches)
	require.Len(t, failures.failures, 1)
}

func TestRunFailureWithoutFailureNotifier(t *testing.T) {
	rec := &telemetry.Recorder{}
	r := newRunner("grades", nil, testTime, rec)

	var runId string
	err := r.run(context.Background(), func(ctx context.Context) error {
		runId = RunId(ctx)
		return errors.New("boom")
	})
	require.ErrorContains(t, err, "grades check: boom")
	require.NotEmpty(t, runId)

	broken := rec.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "grades: "+report_checker_run_failed, broken[0].Id)
	require.Contains(t, broken[0].Params, telemetry.KV{Key: "run_id", Value: runId})
}

func TestPublisher(t *testing.T) {
	notifier := &recordingNotifier{}
	publisher := NewPublisher(notifier, &telemetry.Recorder{})

	require.NoError(t, publisher.Publish(context.Background(), nil))
	require.Empty(t, notifier.batches)

	items := []record.Item{{"id": "1"}, {"id": "2"}}
	require.NoError(t, publisher.Publish(context.Background(), items))
	require.Equal(t, [][]record.Item{items}, notifier.batches)

	notifier.err = errors.New("smtp down")
	require.Error(t, publisher.Publish(context.Background(), items))
}

var _ store.RecordStore = (*memoryRecords)(nil)
