package rag

import (
	"context"
	"fmt"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/logger"
	"github.com/milvus-io/milvus/client/v2/milvusclient"
)

// Verify checks at startup that the collection and the namespace partition
// exist, then loads the collection into memory (Milvus requires this for
// searching). It is okay to load a collection that is already loaded.
func (m *MilvusIndex) Verify(ctx context.Context, namespace string) error {
	exists, err := m.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(m.collection))
	if err != nil {
		return core.NewError("verify index", core.ErrIndexUnavailable, fmt.Errorf("failed to check if collection exists: %w", err))
	}
	if !exists {
		return core.NewError("verify index", core.ErrIndexUnavailable, fmt.Errorf("collection %q does not exist", m.collection))
	}

	if namespace != "" {
		exists, err = m.client.HasPartition(ctx, milvusclient.NewHasPartitionOption(m.collection, namespace))
		if err != nil {
			return core.NewError("verify index", core.ErrIndexUnavailable, fmt.Errorf("failed to check if partition exists: %w", err))
		}
		if !exists {
			return core.NewError("verify index", core.ErrIndexUnavailable,
				fmt.Errorf("namespace %q does not exist in collection %q", namespace, m.collection))
		}
	}

	logger.Info("Loading collection into memory: %s", m.collection)
	task, err := m.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(m.collection))
	if err != nil {
		return core.NewError("verify index", core.ErrIndexUnavailable, fmt.Errorf("failed to load collection %s: %w", m.collection, err))
	}
	if err := task.Await(ctx); err != nil {
		return core.NewError("verify index", core.ErrIndexUnavailable, fmt.Errorf("failed waiting for collection %s to load: %w", m.collection, err))
	}
	logger.Info("Collection %s ready (namespace %q)", m.collection, namespace)
	return nil
}
