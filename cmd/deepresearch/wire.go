package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/leofalp/deepresearch/internal/config"
	"github.com/leofalp/deepresearch/internal/utils"
	"github.com/leofalp/deepresearch/patterns/research"
	"github.com/leofalp/deepresearch/providers/llm/openai"
	"github.com/leofalp/deepresearch/providers/notify/webhook"
	"github.com/leofalp/deepresearch/providers/observability/promobs"
	"github.com/leofalp/deepresearch/providers/observability/slogobs"
	"github.com/leofalp/deepresearch/providers/retrieval/exa"
	"github.com/leofalp/deepresearch/providers/retrieval/webfetch"
	"github.com/leofalp/deepresearch/providers/store/sqlite"
)

// app holds everything a command needs. Close releases the store.
type app struct {
	config   *config.Config
	workflow *research.Workflow
	store    *sqlite.Store
	observer *promobs.Observer
	registry *prometheus.Registry
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logs := slogobs.New(
		slogobs.WithLevel(slogobs.ParseLogLevel(cfg.Log.Level)),
		slogobs.WithFormat(slogobs.ParseFormat(cfg.Log.Format)),
	)
	observer, err := promobs.New(logs, registry)
	if err != nil {
		return nil, err
	}

	capabilities, err := buildCapabilities(cfg)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(ctx, cfg.Store.Path, sqlite.WithPublicURL(cfg.Server.PublicURL))
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	capabilities.Persister = store

	opts := append(cfg.WorkflowOptions(),
		research.WithObserver(observer),
		research.WithCheckpointer(store),
	)
	workflow, err := research.New(capabilities, opts...)
	if err != nil {
		utils.CloseWithLog(store)
		return nil, err
	}

	return &app{
		config:   cfg,
		workflow: workflow,
		store:    store,
		observer: observer,
		registry: registry,
	}, nil
}

// buildCapabilities wires the external services. The persister is added
// by newApp.
func buildCapabilities(cfg *config.Config) (research.Capabilities, error) {
	var capabilities research.Capabilities

	var exaOpts []exa.Option
	if cfg.Exa.BaseURL != "" {
		exaOpts = append(exaOpts, exa.WithBaseURL(cfg.Exa.BaseURL))
	}
	exaClient, err := exa.New(cfg.Exa.APIKey, exaOpts...)
	if err != nil {
		return capabilities, fmt.Errorf("%w (set EXA_API_KEY)", err)
	}
	capabilities.Search = exaClient.SearchRetriever(cfg.Exa.NumResults)
	if cfg.Exa.FetchMissingContent {
		capabilities.Search = webfetch.Enrich(capabilities.Search)
	}
	capabilities.Answer = exaClient.AnswerRetriever()

	llmOpts := []openai.Option{
		openai.WithModel(cfg.LLM.Model),
		openai.WithTemperature(cfg.LLM.Temperature),
	}
	if cfg.LLM.BaseURL != "" {
		llmOpts = append(llmOpts, openai.WithBaseURL(cfg.LLM.BaseURL))
	}
	llm, err := openai.New(cfg.LLM.APIKey, llmOpts...)
	if err != nil {
		return capabilities, fmt.Errorf("%w (set OPENAI_API_KEY)", err)
	}
	capabilities.Summarizer = llm
	capabilities.Composer = llm

	if cfg.Notify.WebhookURL != "" {
		notifier, err := webhook.New(cfg.Notify.WebhookURL)
		if err != nil {
			return capabilities, err
		}
		capabilities.Notifier = notifier
	}

	return capabilities, nil
}

func (a *app) Close() error {
	if a.store == nil {
		return errors.New("app already closed")
	}
	err := a.store.Close()
	a.store = nil
	return err
}
