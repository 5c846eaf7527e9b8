package sqlitestore

import (
	"context"
	"database/sql"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/record"
	"gradewatch/internal/store"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func openMemory(t testing.TB) *sql.DB {
	db, err := Config{File: ":memory:"}.OpenDB()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDBRequiresTarget(t *testing.T) {
	_, err := Config{}.OpenDB()
	require.Error(t, err)
}

func TestRecords(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	s := NewRecords(openMemory(t), &telemetry.Recorder{})

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 0)

	first := record.Record{"20231", "Algebra", "C1", "3", "8.0", "", ""}
	second := record.Record{"20231", "Physics"}
	third := record.Record{}
	err = s.Save(ctx, []*record.Record{&first, &second, &third})
	require.NoError(t, err)

	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	if diff := cmp.Diff(first, *loaded[0]); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(second, *loaded[1]); diff != "" {
		t.Fatal(diff)
	}
	require.Len(t, *loaded[2], 0)

	// a save replaces everything
	err = s.Save(ctx, []*record.Record{&second})
	require.NoError(t, err)
	loaded, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
}

func TestContent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	s := NewContent(openMemory(t), &telemetry.Recorder{})

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, store.ErrDocumentNotFound)

	at := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	err = s.Save(ctx, store.ContentState{Items: []string{"a", "b"}, LastUpdate: at})
	require.NoError(t, err)

	err = s.Save(ctx, store.ContentState{Items: []string{"a", "b", "c"}, LastUpdate: at.Add(time.Hour)})
	require.NoError(t, err)

	state, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, state.Items)
	require.True(t, state.LastUpdate.Equal(at.Add(time.Hour)))

	err = s.Save(ctx, store.ContentState{LastUpdate: at})
	require.NoError(t, err)
	state, err = s.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, state.Items)
}
