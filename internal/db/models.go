package db

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ishaan812/treeqa/internal/index"
)

// Snapshot is one tree pushed to the database.
type Snapshot struct {
	ID        string
	RootPath  string
	HeadHash  string
	NodeCount int
	CreatedAt time.Time
}

// Node is a stored file or folder.
type Node struct {
	ID         string
	SnapshotID string
	Path       string
	Name       string
	Kind       index.Kind
	ParentPath string
	Depth      int
	Position   int
	Summary    string
	Embedding  []float64
}

// SearchResult is a node ranked by cosine similarity to a query.
type SearchResult struct {
	Path       string
	Kind       index.Kind
	Summary    string
	Similarity float64
}

// embeddingLiteral renders v as a DuckDB list literal, or nil when empty.
func embeddingLiteral(v []float64) *string {
	if len(v) == 0 {
		return nil
	}
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := "[" + strings.Join(parts, ",") + "]"
	return &s
}

// scanEmbedding converts a scanned DOUBLE[] column.
func scanEmbedding(v any) ([]float64, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected embedding type %T", v)
	}
	out := make([]float64, len(list))
	for i, x := range list {
		switch f := x.(type) {
		case float64:
			out[i] = f
		case float32:
			out[i] = float64(f)
		default:
			return nil, fmt.Errorf("unexpected embedding element type %T", x)
		}
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
