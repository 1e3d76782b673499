package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/raphaelgruber/podsearch/internal/index"
)

// document is one row of the index_document table.
type document struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Checksum  string `json:"checksum,omitempty"`
	PublishID string `json:"publish_id,omitempty"`
}

// DocumentSource serves index documents stored in SurrealDB.
// It implements index.Source.
type DocumentSource struct {
	client *Client
}

// NewDocumentSource creates a source backed by client.
func NewDocumentSource(client *Client) *DocumentSource {
	return &DocumentSource{client: client}
}

// Read returns the raw JSON content of the document at path. A missing
// document yields an error matching both ErrNotFound and index.ErrNotFound.
func (s *DocumentSource) Read(ctx context.Context, path string) ([]byte, error) {
	results, err := surrealdb.Query[[]document](ctx, s.client.db, `
		SELECT path, content FROM type::record("index_document", $path)
	`, map[string]any{"path": path})
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("read document %s: %w: %w", path, ErrNotFound, index.ErrNotFound)
	}
	return []byte((*results)[0].Result[0].Content), nil
}

// Paths lists the paths of all stored documents, sorted.
func (s *DocumentSource) Paths(ctx context.Context) ([]string, error) {
	results, err := surrealdb.Query[[]document](ctx, s.client.db, `
		SELECT path FROM index_document ORDER BY path
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []string{}, nil
	}

	paths := make([]string, 0, len((*results)[0].Result))
	for _, d := range (*results)[0].Result {
		paths = append(paths, d.Path)
	}
	return paths, nil
}

// DocumentReader is a readable, listable index tree such as index.FileSource.
type DocumentReader interface {
	index.Source
	Paths(ctx context.Context) ([]string, error)
}

// PublishResult describes a completed publish run.
type PublishResult struct {
	PublishID string        `json:"publish_id"`
	Documents int           `json:"documents"`
	Bytes     int           `json:"bytes"`
	Removed   int           `json:"removed"`
	Duration  time.Duration `json:"duration"`
}

// Publish copies every document of src into the index_document table and
// removes documents left over from earlier runs. Each document must be
// valid JSON; the first invalid one aborts the run before anything is removed.
func (s *DocumentSource) Publish(ctx context.Context, src DocumentReader) (PublishResult, error) {
	start := time.Now()
	res := PublishResult{PublishID: uuid.NewString()}

	paths, err := src.Paths(ctx)
	if err != nil {
		return res, fmt.Errorf("publish: %w", err)
	}

	for _, p := range paths {
		data, err := src.Read(ctx, p)
		if err != nil {
			return res, fmt.Errorf("publish %s: %w", p, err)
		}
		if !json.Valid(data) {
			return res, fmt.Errorf("publish %s: %w", p, ErrInvalidDocument)
		}

		sum := sha256.Sum256(data)
		_, err = surrealdb.Query[any](ctx, s.client.db, `
			UPSERT type::record("index_document", $path) SET
				path = $path,
				content = $content,
				checksum = $checksum,
				publish_id = $publish_id,
				published = time::now()
		`, map[string]any{
			"path":       p,
			"content":    string(data),
			"checksum":   hex.EncodeToString(sum[:]),
			"publish_id": res.PublishID,
		})
		if err != nil {
			return res, fmt.Errorf("publish %s: %w", p, wrapQueryError(err))
		}

		res.Documents++
		res.Bytes += len(data)
		slog.Debug("published index document", "path", p, "bytes", len(data))
	}

	removed, err := surrealdb.Query[[]document](ctx, s.client.db, `
		DELETE index_document WHERE publish_id != $publish_id RETURN BEFORE
	`, map[string]any{"publish_id": res.PublishID})
	if err != nil {
		return res, fmt.Errorf("remove stale documents: %w", wrapQueryError(err))
	}
	if removed != nil && len(*removed) > 0 {
		res.Removed = len((*removed)[0].Result)
	}

	res.Duration = time.Since(start)
	slog.Info("index published",
		"publish_id", res.PublishID,
		"documents", res.Documents,
		"bytes", res.Bytes,
		"removed", res.Removed,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
