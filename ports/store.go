package ports

import (
	"context"
	"io"
)

// Table is the generic numeric payload persisted by the artifact store.
type Table struct {
	Rows   int
	Cols   int
	Values []float64
}

// ArtifactWriter provides append-only write access to run artifacts.
// This is the only way to persist pipeline outputs.
type ArtifactWriter interface {
	PutTable(ctx context.Context, key string, table Table) error
	PutJSON(ctx context.Context, key string, payload any) error
}

// ArtifactReader provides read-only access to stored artifacts for
// queries and API access.
type ArtifactReader interface {
	// Open streams the raw bytes of one artifact.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the keys under a prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ArtifactStore combines read and write access.
type ArtifactStore interface {
	ArtifactWriter
	ArtifactReader
}
