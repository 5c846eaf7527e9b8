// Package gcsdoc keeps the content state as a json document in a Google Cloud
// Storage object.
package gcsdoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/store"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/option"
)

const (
	report_document_load = "document.load"
	report_document_save = "document.save"
)

var tracer = otel.Tracer("gradewatch/store/gcsdoc")

type Config struct {
	Bucket string `json:"bucket" validate:"required"`
	Object string `json:"object" validate:"required"`
	// CredentialsFile is a service account key, application default
	// credentials are used when empty.
	CredentialsFile string `json:"credentials_file"`
}

// Content is a ContentStore backed by one GCS object.
type Content struct {
	client *storage.Client
	bucket string
	object string
	tel    telemetry.API
}

var _ store.ContentStore = Content{}

func New(ctx context.Context, config Config, tel telemetry.API) (Content, error) {
	assert.NotNil(tel)

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return Content{}, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return Content{
		client: client,
		bucket: config.Bucket,
		object: config.Object,
		tel:    telemetry.NewScopedAPI("gcsdoc", tel),
	}, nil
}

func (c Content) Close() error {
	return c.client.Close()
}

// document is the stored shape, last_update is RFC 3339.
type document struct {
	Items      []string  `json:"items"`
	LastUpdate time.Time `json:"last_update"`
}

func decode(r io.Reader) (store.ContentState, error) {
	var doc document
	err := json.NewDecoder(r).Decode(&doc)
	if err != nil {
		return store.ContentState{}, err
	}
	return store.ContentState{Items: doc.Items, LastUpdate: doc.LastUpdate}, nil
}

func encode(w io.Writer, state store.ContentState) error {
	items := state.Items
	if items == nil {
		items = []string{}
	}
	return json.NewEncoder(w).Encode(document{Items: items, LastUpdate: state.LastUpdate})
}

func (c Content) Load(ctx context.Context) (store.ContentState, error) {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()

	reader, err := c.client.Bucket(c.bucket).Object(c.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return store.ContentState{}, store.ErrDocumentNotFound
	}
	if err != nil {
		c.tel.ReportBroken(report_document_load, err, c.bucket, c.object)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open object")
		return store.ContentState{}, err
	}
	defer reader.Close()

	state, err := decode(reader)
	if err != nil {
		c.tel.ReportBroken(report_document_load, fmt.Errorf("decode: %w", err), c.bucket, c.object)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode document")
		return store.ContentState{}, err
	}
	return state, nil
}

func (c Content) Save(ctx context.Context, state store.ContentState) error {
	ctx, span := tracer.Start(ctx, "Save")
	defer span.End()

	writer := c.client.Bucket(c.bucket).Object(c.object).NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	err := encode(writer, state)
	if err != nil {
		writer.Close()
		c.tel.ReportBroken(report_document_save, fmt.Errorf("encode: %w", err), c.bucket, c.object)
		return err
	}
	err = writer.Close()
	if err != nil {
		c.tel.ReportBroken(report_document_save, err, c.bucket, c.object)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write object")
		return err
	}
	return nil
}
