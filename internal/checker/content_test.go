package checker

import (
	"context"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/reconcile"
	"gradewatch/internal/record"
	"gradewatch/internal/store"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeContentSource struct {
	items []reconcile.ContentItem
}

func (f fakeContentSource) Login(context.Context) error {
	return nil
}

func (f fakeContentSource) Items(context.Context) ([]reconcile.ContentItem, error) {
	return f.items, nil
}

type memoryContent struct {
	state *store.ContentState
	saves []store.ContentState
}

func (m *memoryContent) Load(context.Context) (store.ContentState, error) {
	if m.state == nil {
		return store.ContentState{}, store.ErrDocumentNotFound
	}
	return *m.state, nil
}

func (m *memoryContent) Save(_ context.Context, state store.ContentState) error {
	m.saves = append(m.saves, state)
	m.state = &state
	return nil
}

func newContent(source ContentSource, content *memoryContent, notifier *recordingNotifier, failures *recordingFailures, bootstrap bool) Content {
	return NewContent(ContentOptions{
		Source:    source,
		Store:     content,
		Notifier:  notifier,
		Failures:  failures,
		Bootstrap: bootstrap,
		Time:      testTime,
		Tel:       &telemetry.Recorder{},
	})
}

var lessons = []reconcile.ContentItem{
	{Id: "a", Header: "Lesson A", Url: "https://example.com/a"},
	{Id: "b", Header: "Lesson B", Url: "https://example.com/b"},
	{Id: "c", Header: "Lesson C", Url: "https://example.com/c"},
}

func TestContentNewItems(t *testing.T) {
	content := &memoryContent{state: &store.ContentState{Items: []string{"a"}}}
	notifier := &recordingNotifier{}

	checker := newContent(fakeContentSource{items: lessons}, content, notifier, &recordingFailures{}, false)
	require.NoError(t, checker.Run(context.Background()))

	require.Len(t, content.saves, 1)
	require.Equal(t, []string{"a", "b", "c"}, content.saves[0].Items)
	require.Equal(t, testTime.At, content.saves[0].LastUpdate)

	require.Len(t, notifier.batches, 1)
	require.Equal(t, []record.Item{lessons[1].Item(), lessons[2].Item()}, notifier.batches[0])
}

func TestContentUnchanged(t *testing.T) {
	content := &memoryContent{state: &store.ContentState{Items: []string{"a", "b", "c"}}}
	notifier := &recordingNotifier{}

	checker := newContent(fakeContentSource{items: lessons}, content, notifier, &recordingFailures{}, false)
	require.NoError(t, checker.Run(context.Background()))
	require.Empty(t, content.saves)
	require.Empty(t, notifier.batches)
}

func TestContentRemovedOnly(t *testing.T) {
	content := &memoryContent{state: &store.ContentState{Items: []string{"a", "b", "c", "d"}}}
	notifier := &recordingNotifier{}

	checker := newContent(fakeContentSource{items: lessons}, content, notifier, &recordingFailures{}, false)
	require.NoError(t, checker.Run(context.Background()))
	require.Len(t, content.saves, 1)
	require.Equal(t, []string{"a", "b", "c"}, content.saves[0].Items)
	require.Empty(t, notifier.batches)
}

func TestContentMissingState(t *testing.T) {
	content := &memoryContent{}
	notifier := &recordingNotifier{}
	failures := &recordingFailures{}

	checker := newContent(fakeContentSource{items: lessons}, content, notifier, failures, false)
	err := checker.Run(context.Background())
	require.ErrorIs(t, err, store.ErrDocumentNotFound)
	require.Empty(t, content.saves)
	require.Len(t, failures.failures, 1)
	require.Equal(t, "content", failures.failures[0].Domain)
}

func TestContentBootstrap(t *testing.T) {
	content := &memoryContent{}
	notifier := &recordingNotifier{}

	checker := newContent(fakeContentSource{items: lessons}, content, notifier, &recordingFailures{}, true)
	require.NoError(t, checker.Run(context.Background()))
	require.Equal(t, []string{"a", "b", "c"}, content.state.Items)
	require.Len(t, notifier.batches[0], 3)
}
