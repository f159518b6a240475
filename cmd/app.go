package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/prospectline/leadgen/internal/extract"
	"github.com/prospectline/leadgen/internal/fetch"
	"github.com/prospectline/leadgen/internal/mailer"
	"github.com/prospectline/leadgen/internal/pipeline"
	"github.com/prospectline/leadgen/internal/scheduler"
	"github.com/prospectline/leadgen/internal/search"
	"github.com/prospectline/leadgen/internal/store"
	"github.com/prospectline/leadgen/internal/validate"
	anthropicpkg "github.com/prospectline/leadgen/pkg/anthropic"
	"github.com/prospectline/leadgen/pkg/firecrawl"
	"github.com/prospectline/leadgen/pkg/serpapi"
	"github.com/prospectline/leadgen/pkg/tavily"
)

// appEnv holds all initialized services needed by the commands.
type appEnv struct {
	Store     store.Store
	Pipeline  *pipeline.Pipeline
	Outreach  *mailer.Outreach
	Scheduler *scheduler.Scheduler
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp sets up the store, API clients, and all pipeline services.
// Callers should defer env.Close(). Unconfigured providers are left nil and
// their stages fall back: search to the placeholder, fetch to direct HTTP,
// extraction and drafting to heuristic templates.
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	var llm anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		llm = anthropicpkg.NewClient(cfg.Anthropic.Key, cfg.Anthropic.Model)
	} else {
		zap.L().Warn("LEADGEN_ANTHROPIC_KEY not set, extraction and drafting run on heuristics")
	}

	var providers []search.Provider
	if cfg.Serp.Key != "" {
		serpClient := serpapi.NewClient(cfg.Serp.Key, serpapi.WithBaseURL(cfg.Serp.BaseURL))
		providers = append(providers, search.NewSerpProvider(serpClient, cfg.Serp.Engine))
	}
	if cfg.Tavily.Key != "" {
		tavilyClient := tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))
		providers = append(providers, search.NewTavilyProvider(tavilyClient))
	}
	if len(providers) == 0 {
		zap.L().Warn("no search provider configured, discovery uses placeholder results")
	}

	rules := search.DefaultRules()
	if cfg.Search.RulesFile != "" {
		rules, err = search.LoadRules(cfg.Search.RulesFile)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	adapter := search.NewAdapter(rules, cfg.Search.RateLimit, providers...)

	var primary fetch.PageProvider
	if cfg.Firecrawl.Key != "" {
		fcClient := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
		primary = fetch.NewFirecrawlProvider(fcClient)
	}
	fallback := fetch.NewLocalProvider(time.Duration(cfg.Fetch.TimeoutSecs) * time.Second)
	fetcher := fetch.NewFetcher(primary, fallback, cfg.Fetch)

	extractor := extract.NewExtractor(llm, cfg.Anthropic.Model)
	validator := validate.NewValidator(llm, cfg.Anthropic.Model, cfg.Validate.Strict())
	pipe := pipeline.New(adapter, fetcher, extractor, validator, st)

	sender := mailer.NewSMTPSender(cfg.SMTP)
	writer := mailer.NewCopywriter(llm, cfg.Anthropic.Model, cfg.SMTP.From)
	outreach := mailer.NewOutreach(st, sender, writer, cfg.Scheduler.FollowUpDays)

	sched := scheduler.New(st, outreach,
		time.Duration(cfg.Scheduler.IntervalMinutes)*time.Minute)

	return &appEnv{
		Store:     st,
		Pipeline:  pipe,
		Outreach:  outreach,
		Scheduler: sched,
	}, nil
}
