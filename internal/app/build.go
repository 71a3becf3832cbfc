package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ent0n29/interviewer/internal/azure"
	"github.com/ent0n29/interviewer/internal/config"
	"github.com/ent0n29/interviewer/internal/httpapi"
	"github.com/ent0n29/interviewer/internal/interview"
	"github.com/ent0n29/interviewer/internal/llm"
	"github.com/ent0n29/interviewer/internal/memory"
	"github.com/ent0n29/interviewer/internal/observability"
	"github.com/ent0n29/interviewer/internal/prompt"
	"github.com/ent0n29/interviewer/internal/session"
	"github.com/ent0n29/interviewer/internal/storage"
)

// readinessProbeID is read, never written, by the readiness check.
const readinessProbeID = "readyz-probe"

type BuildResult struct {
	Config     config.Config
	API        *httpapi.Server
	Interviews *interview.Service
	Metrics    *observability.Metrics
	Provider   string
	Store      storage.Backend

	// Cleanup should be called on shutdown to release store connections.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	backend, err := llm.NewBackend(llm.Config{
		Provider:        cfg.LLMProvider,
		Timeout:         cfg.LLMTimeout,
		GroqAPIKey:      cfg.GroqAPIKey,
		GroqModel:       cfg.GroqModel,
		GroqBaseURL:     cfg.GroqBaseURL,
		OllamaBaseURL:   cfg.OllamaBaseURL,
		OllamaModel:     cfg.OllamaModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModel:     cfg.GeminiModel,
		AzureEndpoint:   cfg.AzureOpenAIEndpoint,
		AzureAPIKey:     cfg.AzureOpenAIAPIKey,
		AzureDeployment: cfg.AzureOpenAIDeployment,
		HTTPURL:         cfg.LLMHTTPURL,
	})
	if err != nil {
		return nil, fmt.Errorf("llm backend init failed: %w", err)
	}

	historyStore, err := memory.NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("history store init failed: %w", err)
	}
	clockStore, err := session.NewStore(ctx, cfg.Store)
	if err != nil {
		_ = historyStore.Close()
		return nil, fmt.Errorf("clock store init failed: %w", err)
	}

	transcript := memory.NewTranscript(historyStore, cfg.HistoryLimit)
	clock := session.NewClock(clockStore, transcript, cfg.InterviewDuration)
	chains := prompt.NewCache(backend)
	interviews := interview.NewService(clock, chains, prompt.Builder{AllowEmpty: cfg.AllowEmptyContext}, transcript, metrics)

	ready := func(ctx context.Context) error {
		if _, err := clockStore.Status(ctx, readinessProbeID); err != nil {
			return fmt.Errorf("clock store: %w", err)
		}
		if _, err := historyStore.History(ctx, readinessProbeID, 1); err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		return nil
	}

	api := httpapi.New(cfg, interviews, metrics, httpapi.Options{
		Tokens:   azure.NewTokenIssuer(cfg.AzureSpeechKey, cfg.AzureSpeechRegion, nil),
		Ready:    ready,
		Provider: backend.Provider(),
	})

	cleanup := func() error {
		return errors.Join(clockStore.Close(), historyStore.Close())
	}

	return &BuildResult{
		Config:     cfg,
		API:        api,
		Interviews: interviews,
		Metrics:    metrics,
		Provider:   backend.Provider(),
		Store:      cfg.Store.Backend,
		Cleanup:    cleanup,
	}, nil
}
