package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crestline-labs/fincompare/internal/cache"
	"github.com/crestline-labs/fincompare/internal/extractor"
	"github.com/crestline-labs/fincompare/internal/kpinorm"
	"github.com/crestline-labs/fincompare/internal/marketdata"
	"github.com/crestline-labs/fincompare/internal/numparse"
	"github.com/crestline-labs/fincompare/internal/pipeline"
	"github.com/crestline-labs/fincompare/internal/ratio"
	"github.com/crestline-labs/fincompare/internal/store"
	anthropicpkg "github.com/crestline-labs/fincompare/pkg/anthropic"
	geminipkg "github.com/crestline-labs/fincompare/pkg/gemini"
)

// analyzerEnv holds the initialized store, caches, and analyzer shared by
// the analyze/compare/serve commands.
type analyzerEnv struct {
	Store     store.Store
	Analyzer  *pipeline.Analyzer
	WebCache  *cache.WebDataCache
	Documents *cache.DocumentCache
}

// Close releases resources held by the environment.
func (ae *analyzerEnv) Close() {
	if ae.WebCache != nil {
		ae.WebCache.Close()
	}
	if ae.Documents != nil {
		ae.Documents.Close()
	}
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url is required for the postgres driver")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// loadSynonyms builds the KPI synonym table, applying the optional
// overrides file.
func loadSynonyms() (*kpinorm.SynonymTable, error) {
	table := kpinorm.NewSynonymTable()
	if cfg.Analysis.SynonymOverrides == "" {
		return table, nil
	}
	f, err := os.Open(cfg.Analysis.SynonymOverrides)
	if err != nil {
		return nil, eris.Wrap(err, "open synonym overrides")
	}
	defer f.Close()
	if err := table.LoadOverrides(f); err != nil {
		return nil, eris.Wrap(err, "load synonym overrides")
	}
	zap.L().Info("synonym overrides loaded", zap.String("path", cfg.Analysis.SynonymOverrides))
	return table, nil
}

// buildChain assembles the extraction chain in the configured order. AI
// extractors without a configured key are skipped with a warning; the
// heuristic extractor needs no credentials.
func buildChain(ctx context.Context, parser *numparse.Parser, synonyms *kpinorm.SynonymTable) (*extractor.Chain, error) {
	var extractors []extractor.MetricsExtractor
	for _, name := range cfg.Analysis.ChainOrder {
		switch name {
		case "anthropic":
			if cfg.Anthropic.Key == "" {
				zap.L().Warn("FINCOMPARE_ANTHROPIC_KEY not set, skipping anthropic extractor")
				continue
			}
			client := anthropicpkg.NewClient(cfg.Anthropic.Key)
			extractors = append(extractors, extractor.NewAnthropicExtractor(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, synonyms))
		case "gemini":
			if cfg.Gemini.Key == "" {
				zap.L().Warn("FINCOMPARE_GEMINI_KEY not set, skipping gemini extractor")
				continue
			}
			client, err := geminipkg.NewClient(ctx, cfg.Gemini.Key)
			if err != nil {
				return nil, eris.Wrap(err, "init gemini client")
			}
			extractors = append(extractors, extractor.NewGeminiExtractor(client, cfg.Gemini.Model, synonyms))
		case "heuristic":
			extractors = append(extractors, extractor.NewHeuristicExtractor(parser))
		default:
			return nil, eris.Errorf("unknown extractor %q in analysis.chain_order", name)
		}
	}
	if len(extractors) == 0 {
		return nil, eris.New("no extractors available, configure an API key or add heuristic to analysis.chain_order")
	}
	return extractor.NewChain(extractors...), nil
}

// initEnv sets up the store, caches, extraction chain, and analyzer.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*analyzerEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	synonyms, err := loadSynonyms()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	parser := numparse.NewParser(cfg.Rates)

	chain, err := buildChain(ctx, parser, synonyms)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	webCache := cache.NewWebDataCache(
		cfg.Cache.MaxSize,
		time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
		time.Duration(cfg.Cache.SweepMinutes)*time.Minute,
	)
	documents := cache.NewDocumentCache(
		cfg.Cache.MaxSize,
		time.Duration(cfg.Cache.DocumentTTLHours)*time.Hour,
		time.Duration(cfg.Cache.SweepMinutes)*time.Minute,
	)

	quotes := marketdata.NewClient(
		marketdata.WithBaseURL(cfg.Market.BaseURL),
		marketdata.WithRateLimit(rate.Limit(cfg.Market.RPS), cfg.Market.Burst),
		marketdata.WithCache(webCache),
	)

	analyzer := pipeline.NewAnalyzer(pipeline.Options{
		Parser:         parser,
		Chain:          chain,
		Calculator:     ratio.NewCalculator(cfg.Analysis.QuickRatioFactor),
		Quotes:         quotes,
		MatchThreshold: cfg.Analysis.NameMatchThreshold,
	})

	return &analyzerEnv{
		Store:     st,
		Analyzer:  analyzer,
		WebCache:  webCache,
		Documents: documents,
	}, nil
}
