// Package app builds the services shared by every front-end from a
// validated configuration.
package app

import (
	"context"
	"fmt"

	"github.com/hunterwarburton/fva/internal/auth"
	"github.com/hunterwarburton/fva/internal/chat"
	"github.com/hunterwarburton/fva/internal/config"
	"github.com/hunterwarburton/fva/internal/elevenlabs"
	"github.com/hunterwarburton/fva/internal/embed"
	"github.com/hunterwarburton/fva/internal/llm"
	"github.com/hunterwarburton/fva/internal/logger"
	"github.com/hunterwarburton/fva/internal/pipeline"
	"github.com/hunterwarburton/fva/internal/rag"
	"github.com/hunterwarburton/fva/internal/tools"
	"github.com/hunterwarburton/fva/internal/websearch"
)

// App holds the wired services.
type App struct {
	Index     *rag.MilvusIndex
	Retriever *rag.Retriever
	Pipeline  *pipeline.Pipeline
	Chat      *chat.Service
	Policy    *auth.PolicyService
}

// Build connects to Milvus, checks the configured collection and partition,
// and wires the pipeline and the web-search chatbot.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	index, err := rag.NewMilvusIndex(ctx, rag.MilvusConfig{
		Address:    cfg.Index.Address,
		APIKey:     cfg.Index.APIKey,
		Collection: cfg.Index.Name,
		Metric:     cfg.Index.Metric,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to vector index: %w", err)
	}
	if err := index.Verify(ctx, cfg.Index.Namespace); err != nil {
		index.Close(ctx)
		return nil, err
	}

	embedder := embed.NewClient(embed.Config{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
		Dim:     cfg.Embedding.Dim,
		Timeout: cfg.Timeouts.Embedding,
	})
	retriever := rag.NewRetriever(embedder, index, rag.RetrieverOptions{
		Namespace: cfg.Index.Namespace,
		K:         cfg.Retrieval.K,
		Timeout:   cfg.Timeouts.Retrieval,
	})

	llmService := llm.NewOpenRouterService(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Models:  cfg.LLM.Models,
		Timeout: cfg.Timeouts.Generation,
	})
	policy := pipeline.PolicyByName(cfg.Retrieval.Policy, cfg.Retrieval.MaxContextChars)
	synth := pipeline.NewSynthesizer(llmService, policy)

	speaker := elevenlabs.NewClient(elevenlabs.Config{
		APIKey:  cfg.Speech.APIKey,
		VoiceID: cfg.Speech.VoiceID,
		Model:   cfg.Speech.Model,
		Timeout: cfg.Timeouts.Speech,
	})

	access := auth.NewPolicyService(cfg.Telegram.AdminUserIDs, cfg.Telegram.AllowedUserIDs).
		WithEmails(cfg.Auth.AdminEmails, cfg.Auth.AllowedEmails)

	router := tools.NewToolRouter(access, websearch.NewClient("", cfg.Timeouts.Search), retriever)

	logger.Info("Pipeline ready: index %s/%s, k=%d, context policy %s", cfg.Index.Name, cfg.Index.Namespace, cfg.Retrieval.K, policy.Name())
	return &App{
		Index:     index,
		Retriever: retriever,
		Pipeline:  pipeline.New(retriever, synth, speaker, cfg.Retrieval.Width),
		Chat:      chat.NewService(llmService, router),
		Policy:    access,
	}, nil
}

// Close disconnects from the index.
func (a *App) Close(ctx context.Context) error {
	return a.Index.Close(ctx)
}
