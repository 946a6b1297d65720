package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/logger"
)

// Retriever embeds a query and fetches the most similar chunks from an index.
type Retriever struct {
	embedder  core.Embedder
	index     core.Index
	namespace string
	defaultK  int
	timeout   time.Duration
}

// RetrieverOptions tunes a Retriever. Zero values pick the defaults.
type RetrieverOptions struct {
	Namespace string
	K         int
	Timeout   time.Duration
}

// NewRetriever creates a retriever over the given embedder and index.
func NewRetriever(embedder core.Embedder, index core.Index, opts RetrieverOptions) *Retriever {
	if opts.K <= 0 {
		opts.K = DefaultK
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		namespace: opts.Namespace,
		defaultK:  opts.K,
		timeout:   opts.Timeout,
	}
}

// Retrieve returns at most k chunks ordered by descending similarity.
// k <= 0 means the default; an empty namespace means the configured one.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, namespace string) (core.RetrievalResult, error) {
	if k <= 0 {
		k = r.defaultK
	}
	if namespace == "" {
		namespace = r.namespace
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return core.RetrievalResult{K: k}, wrapKind("retrieve", core.ErrEmbeddingFailure, err)
	}
	if dim := r.embedder.Dimension(); dim > 0 && len(vec) != dim {
		return core.RetrievalResult{K: k}, core.NewError("retrieve", core.ErrEmbeddingFailure,
			fmt.Errorf("embedding has %d dimensions, index expects %d", len(vec), dim))
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	chunks, err := r.index.Search(searchCtx, vec, namespace, k)
	if err != nil {
		return core.RetrievalResult{K: k}, wrapKind("retrieve", core.ErrIndexUnavailable, err)
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	if len(chunks) > k {
		chunks = chunks[:k]
	}
	logger.Debug("Retrieved %d chunks from namespace %q in %s", len(chunks), namespace, time.Since(start))
	return core.RetrievalResult{Chunks: chunks, K: k}, nil
}

// wrapKind keeps an error that already carries a kind and tags anything else with kind.
func wrapKind(op string, kind, err error) error {
	var pe *core.PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return core.NewError(op, kind, err)
}
