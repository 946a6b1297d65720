package core

import "context"

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) (EmbeddingVector, error)
	Dimension() int
}

// Index runs similarity search against a named collection. The namespace
// selects a partition inside the collection.
type Index interface {
	Search(ctx context.Context, vector EmbeddingVector, namespace string, k int) ([]DocumentChunk, error)
}

// SourceLister is implemented by indexes that can enumerate the document
// identifiers they hold.
type SourceLister interface {
	ListSources(ctx context.Context, namespace string, max int) ([]string, error)
}

// Speaker converts answer text to playable audio.
type Speaker interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
