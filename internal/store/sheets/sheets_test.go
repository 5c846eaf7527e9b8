package sheets

import (
	"context"
	"encoding/json"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/record"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeSheet struct {
	values  [][]any
	updates []map[string]any
	queries []string
}

func (f *fakeSheet) handler(t testing.TB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.queries = append(f.queries, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"range":          "Grades!A2:G100",
				"majorDimension": "ROWS",
				"values":         f.values,
			})
		case http.MethodPut:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				t.Error(err)
			}
			var update map[string]any
			err = json.Unmarshal(body, &update)
			if err != nil {
				t.Error(err)
			}
			f.updates = append(f.updates, update)
			json.NewEncoder(w).Encode(map[string]any{"updatedRows": 1})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newTestStore(t testing.TB, fake *fakeSheet) Store {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	s, err := NewWithOptions(
		context.Background(),
		"sheet-id",
		"Grades!A2:G",
		&telemetry.Recorder{},
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return s
}

func TestLoad(t *testing.T) {
	fake := &fakeSheet{values: [][]any{
		{20231, "Algebra", "MI1111", 3, 8.5, "", "=1-0.3"},
		{20231, "Physics"},
	}}
	s := newTestStore(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	records, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	if diff := cmp.Diff(record.Record{"20231", "Algebra", "MI1111", "3", "8.5", "", "=1-0.3"}, *records[0]); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff(record.Record{"20231", "Physics"}, *records[1]); diff != "" {
		t.Fatal(diff)
	}
	require.Contains(t, fake.queries[0], "valueRenderOption=FORMULA")
}

func TestSave(t *testing.T) {
	fake := &fakeSheet{}
	s := newTestStore(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	r := record.Record{"20231", "Algebra", "", "3"}
	err := s.Save(ctx, []*record.Record{&r})
	require.NoError(t, err)

	require.Len(t, fake.updates, 1)
	require.Equal(t, "ROWS", fake.updates[0]["majorDimension"])
	require.Equal(t, []any{[]any{"20231", "Algebra", "", "3"}}, fake.updates[0]["values"])
	require.Contains(t, fake.queries[0], "valueInputOption=USER_ENTERED")
}

func TestCellString(t *testing.T) {
	require.Equal(t, "", cellString(nil))
	require.Equal(t, "3", cellString(float64(3)))
	require.Equal(t, "0.7", cellString(0.7))
	require.Equal(t, "TRUE", cellString(true))
	require.Equal(t, "x", cellString("x"))
}

func TestLoadCredentials(t *testing.T) {
	inline := `{"type": "service_account", "private_key": "-----BEGIN-----\\nABC\\n-----END-----"}`
	creds, err := loadCredentials(inline)
	require.NoError(t, err)

	var key map[string]string
	require.NoError(t, json.Unmarshal(creds, &key))
	require.Equal(t, "-----BEGIN-----\nABC\n-----END-----", key["private_key"])

	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(inline), 0600))
	fromFile, err := loadCredentials(path)
	require.NoError(t, err)
	require.JSONEq(t, string(creds), string(fromFile))

	_, err = loadCredentials(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
