package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/record"
	"gradewatch/internal/store"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_db_query = "db.query"
)

var tracer = otel.Tracer("gradewatch/store/sqlitestore")

// Records is a RecordStore kept in the grade_record table.
type Records struct {
	db  *sql.DB
	tel telemetry.API
}

var _ store.RecordStore = Records{}

func NewRecords(db *sql.DB, tel telemetry.API) Records {
	assert.NotNil(db)
	assert.NotNil(tel)
	return Records{
		db:  db,
		tel: telemetry.NewScopedAPI("sqlitestore", tel),
	}
}

func (s Records) Load(ctx context.Context) ([]*record.Record, error) {
	ctx, span := tracer.Start(ctx, "Records.Load")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, "select fields from grade_record order by position")
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "select grade_record")
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query records")
		return nil, err
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		var encoded string
		err = rows.Scan(&encoded)
		if err != nil {
			return nil, err
		}
		var fields record.Record
		err = json.Unmarshal([]byte(encoded), &fields)
		if err != nil {
			s.tel.ReportBroken(report_db_query, fmt.Errorf("decode fields: %w", err), encoded)
			return nil, err
		}
		out = append(out, &fields)
	}
	err = rows.Err()
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("records", len(out)))
	return out, nil
}

func (s Records) Save(ctx context.Context, records []*record.Record) error {
	ctx, span := tracer.Start(ctx, "Records.Save")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(records)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from grade_record")
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "delete grade_record")
		return err
	}

	for i, r := range records {
		encoded, err := json.Marshal(*r)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(
			ctx,
			"insert into grade_record(position, fields) values (?, ?)",
			i, string(encoded),
		)
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "insert grade_record", i)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to insert record")
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit transaction")
		return err
	}
	return nil
}

// Content is a ContentStore kept as the single row of content_state.
type Content struct {
	db  *sql.DB
	tel telemetry.API
}

var _ store.ContentStore = Content{}

func NewContent(db *sql.DB, tel telemetry.API) Content {
	assert.NotNil(db)
	assert.NotNil(tel)
	return Content{
		db:  db,
		tel: telemetry.NewScopedAPI("sqlitestore", tel),
	}
}

func (s Content) Load(ctx context.Context) (store.ContentState, error) {
	ctx, span := tracer.Start(ctx, "Content.Load")
	defer span.End()

	var (
		encoded    string
		lastUpdate int64
	)
	err := s.db.QueryRowContext(
		ctx,
		"select items, last_update from content_state where id = 1",
	).Scan(&encoded, &lastUpdate)
	if err == sql.ErrNoRows {
		return store.ContentState{}, store.ErrDocumentNotFound
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "select content_state")
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query content state")
		return store.ContentState{}, err
	}

	var state store.ContentState
	err = json.Unmarshal([]byte(encoded), &state.Items)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("decode items: %w", err), encoded)
		return store.ContentState{}, err
	}
	state.LastUpdate = time.Unix(lastUpdate, 0)
	return state, nil
}

func (s Content) Save(ctx context.Context, state store.ContentState) error {
	ctx, span := tracer.Start(ctx, "Content.Save")
	defer span.End()

	items := state.Items
	if items == nil {
		items = []string{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`insert into content_state(id, items, last_update) values (1, ?, ?)
		on conflict(id) do update set items = excluded.items, last_update = excluded.last_update`,
		string(encoded), state.LastUpdate.Unix(),
	)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "upsert content_state")
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write content state")
		return err
	}
	return nil
}
