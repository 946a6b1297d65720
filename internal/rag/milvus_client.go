package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/logger"
	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// MilvusConfig addresses a document collection in Milvus.
type MilvusConfig struct {
	Address    string
	APIKey     string
	Collection string
	Metric     string
}

// MilvusIndex is a read-only similarity search client over one collection.
// Namespaces map to partitions of that collection.
type MilvusIndex struct {
	client     *milvusclient.Client
	collection string
	metric     string
}

// NewMilvusIndex connects to Milvus.
func NewMilvusIndex(ctx context.Context, cfg MilvusConfig) (*MilvusIndex, error) {
	logger.Info("Connecting to Milvus at %s (collection %s)", cfg.Address, cfg.Collection)

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: cfg.Address,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, core.NewError("connect index", core.ErrIndexUnavailable, err)
	}

	metric := strings.ToUpper(cfg.Metric)
	if metric == "" {
		metric = MetricCosine
	}
	return &MilvusIndex{client: c, collection: cfg.Collection, metric: metric}, nil
}

// Search returns up to k chunks similar to vector from the namespace partition.
func (m *MilvusIndex) Search(ctx context.Context, vector core.EmbeddingVector, namespace string, k int) ([]core.DocumentChunk, error) {
	if k <= 0 {
		k = DefaultK
	}

	opt := milvusclient.NewSearchOption(m.collection, k, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldVector).
		WithOutputFields(FieldText, FieldTitle, FieldSource, FieldMetadata)
	if namespace != "" {
		opt = opt.WithPartitions(namespace)
	}

	results, err := m.client.Search(ctx, opt)
	if err != nil {
		return nil, core.NewError("search index", core.ErrIndexUnavailable,
			fmt.Errorf("collection %s, partition %s: %w", m.collection, namespace, err))
	}

	// Check for empty results
	if len(results) == 0 || results[0].ResultCount == 0 {
		return []core.DocumentChunk{}, nil
	}
	rs := results[0]
	if rs.Err != nil {
		return nil, core.NewError("search index", core.ErrIndexUnavailable, rs.Err)
	}

	texts := rs.GetColumn(FieldText)
	if texts == nil {
		return nil, core.NewError("search index", core.ErrIndexUnavailable,
			fmt.Errorf("collection %s has no %q field", m.collection, FieldText))
	}
	titles := rs.GetColumn(FieldTitle)
	sources := rs.GetColumn(FieldSource)
	metadata := rs.GetColumn(FieldMetadata)

	chunks := make([]core.DocumentChunk, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		text, err := texts.GetAsString(i)
		if err != nil {
			logger.Warn("Skipping search hit %d: %v", i, err)
			continue
		}

		chunk := core.DocumentChunk{
			ID:       idAt(rs.IDs, i),
			Text:     text,
			Title:    stringAt(titles, i),
			SourceID: stringAt(sources, i),
		}
		if meta := metadataAt(metadata, i); meta != nil {
			chunk.Metadata = meta
			chunk.Page = pageOf(meta)
			if chunk.SourceID == "" {
				if s, ok := meta["source"].(string); ok {
					chunk.SourceID = s
				}
			}
		}
		if i < len(rs.Scores) {
			chunk.Score = m.similarity(rs.Scores[i])
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// similarity converts a raw Milvus score into a value where larger is more similar.
func (m *MilvusIndex) similarity(score float32) float32 {
	if m.metric == MetricL2 {
		return 1 / (1 + score)
	}
	return score
}

// Close closes the connection to Milvus
func (m *MilvusIndex) Close(ctx context.Context) error {
	return m.client.Close(ctx)
}

func idAt(col column.Column, i int) string {
	if col == nil || i >= col.Len() {
		return ""
	}
	if s, err := col.GetAsString(i); err == nil {
		return s
	}
	if n, err := col.GetAsInt64(i); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return ""
}

func stringAt(col column.Column, i int) string {
	if col == nil || i >= col.Len() {
		return ""
	}
	s, err := col.GetAsString(i)
	if err != nil {
		return ""
	}
	return s
}

func metadataAt(col column.Column, i int) map[string]interface{} {
	if col == nil || i >= col.Len() {
		return nil
	}
	raw, err := col.Get(i)
	if err != nil {
		return nil
	}
	var data []byte
	switch v := raw.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return meta
}

func pageOf(meta map[string]interface{}) int {
	switch v := meta["page"].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}
