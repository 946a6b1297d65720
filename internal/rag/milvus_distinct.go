package rag

import (
	"context"
	"fmt"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/logger"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// ListSources returns up to max distinct source identifiers stored in the namespace.
func (m *MilvusIndex) ListSources(ctx context.Context, namespace string, max int) ([]string, error) {
	if max <= 0 {
		max = 100
	}

	queryOpt := milvusclient.NewQueryOption(m.collection).
		WithFilter(FieldSource + ` != ""`).
		WithOutputFields(FieldSource).
		WithLimit(max * 20) // chunks per document vary; fetch generously before the distinct pass
	if namespace != "" {
		queryOpt = queryOpt.WithPartitions(namespace)
	}

	results, err := m.client.Query(ctx, queryOpt)
	if err != nil {
		return nil, core.NewError("list sources", core.ErrIndexUnavailable, fmt.Errorf("query %s: %w", m.collection, err))
	}

	sourceCol := results.GetColumn(FieldSource)
	if sourceCol == nil {
		logger.Warn("%s column not found in query result for collection %s", FieldSource, m.collection)
		return []string{}, nil
	}

	seen := make(map[string]struct{})
	distinct := make([]string, 0)
	for i := 0; i < sourceCol.Len(); i++ {
		source, err := sourceCol.GetAsString(i)
		if err != nil {
			logger.Warn("Error getting source from column at index %d: %v", i, err)
			continue
		}
		if source == "" {
			continue
		}
		if _, exists := seen[source]; !exists {
			seen[source] = struct{}{}
			distinct = append(distinct, source)
			if len(distinct) >= max {
				break
			}
		}
	}
	logger.Debug("Fetched %d distinct sources from %s/%s", len(distinct), m.collection, namespace)
	return distinct, nil
}
