// Package sheets keeps grade records in a range of a Google Sheets spreadsheet,
// one record per row.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/record"
	"gradewatch/internal/store"
	"os"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	report_store_load = "store.load"
	report_store_save = "store.save"
)

var tracer = otel.Tracer("gradewatch/store/sheets")

type Config struct {
	SpreadsheetId string `json:"spreadsheet_id" validate:"required"`
	// Range is in A1 notation, ex. `Grades!A2:G`.
	Range string `json:"range" validate:"required"`
	// Credentials is a service account key, either inline json or a path to
	// a json file.
	Credentials string `json:"credentials" validate:"required"`
}

// Store is a RecordStore backed by a spreadsheet range.
type Store struct {
	svc           *sheets.Service
	spreadsheetId string
	valueRange    string
	tel           telemetry.API
}

var _ store.RecordStore = Store{}

// New creates a sheets client authenticated with the configured service
// account.
func New(ctx context.Context, config Config, tel telemetry.API) (Store, error) {
	creds, err := loadCredentials(config.Credentials)
	if err != nil {
		return Store{}, err
	}
	return NewWithOptions(
		ctx,
		config.SpreadsheetId,
		config.Range,
		tel,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

// NewWithOptions creates a Store with explicit client options.
func NewWithOptions(ctx context.Context, spreadsheetId, valueRange string, tel telemetry.API, opts ...option.ClientOption) (Store, error) {
	assert.NotNil(tel)
	assert.NotEmptyStr(spreadsheetId)
	assert.NotEmptyStr(valueRange)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return Store{}, fmt.Errorf("create sheets service: %w", err)
	}
	return Store{
		svc:           svc,
		spreadsheetId: spreadsheetId,
		valueRange:    valueRange,
		tel:           telemetry.NewScopedAPI("sheets", tel),
	}, nil
}

// loadCredentials reads a service account key, fixing private keys whose
// newlines were escaped twice by the environment they were stored in.
func loadCredentials(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	contents := []byte(raw)
	if !strings.HasPrefix(raw, "{") {
		var err error
		contents, err = os.ReadFile(raw)
		if err != nil {
			return nil, fmt.Errorf("read credentials: %w", err)
		}
	}

	var key map[string]any
	err := json.Unmarshal(contents, &key)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if pk, ok := key["private_key"].(string); ok {
		key["private_key"] = strings.ReplaceAll(pk, `\n`, "\n")
	}
	return json.Marshal(key)
}

func (s Store) Load(ctx context.Context) ([]*record.Record, error) {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()

	res, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetId, s.valueRange).
		ValueRenderOption("FORMULA").
		Context(ctx).
		Do()
	if err != nil {
		s.tel.ReportBroken(report_store_load, err, s.spreadsheetId, s.valueRange)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read range")
		return nil, err
	}

	out := make([]*record.Record, len(res.Values))
	for i, row := range res.Values {
		r := make(record.Record, len(row))
		for j, cell := range row {
			r[j] = cellString(cell)
		}
		out[i] = &r
	}

	span.SetAttributes(attribute.Int("records", len(out)))
	return out, nil
}

func (s Store) Save(ctx context.Context, records []*record.Record) error {
	ctx, span := tracer.Start(ctx, "Save")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(records)))

	values := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(*r))
		for j, field := range *r {
			row[j] = field
		}
		values[i] = row
	}

	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetId, s.valueRange, &sheets.ValueRange{
			MajorDimension: "ROWS",
			Values:         values,
		}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		s.tel.ReportBroken(report_store_save, err, s.spreadsheetId, s.valueRange, len(records))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write range")
		return err
	}
	return nil
}

// cellString renders a cell the way it reads in the sheet, the api returns
// numeric cells as json numbers when rendering formulas.
func cellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(v)
	}
}
