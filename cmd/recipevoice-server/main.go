// recipevoice-server is the extraction and retrieval backend the voice
// client talks to.
//
// Usage:
//
//	recipevoice-server [-config recipevoice.yaml] [-addr :5000] [-verbose]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/config"
	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/extract"
	"github.com/hammamikhairi/recipevoice/internal/gpt"
	"github.com/hammamikhairi/recipevoice/internal/logger"
	"github.com/hammamikhairi/recipevoice/internal/metrics"
	"github.com/hammamikhairi/recipevoice/internal/nutrition"
	"github.com/hammamikhairi/recipevoice/internal/recipe"
	"github.com/hammamikhairi/recipevoice/internal/server"
	"github.com/hammamikhairi/recipevoice/internal/storage"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	rateLimit := flag.Int("rate-limit", 60, "API requests per minute per client IP (0 disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if *verbose {
		level = logger.LevelVerbose
	}
	log := logger.New(level, os.Stderr)

	if cfg.LLM.Endpoint == "" || cfg.LLM.APIKey == "" {
		log.Error("llm endpoint and key are required (set GPT_CHAT_ENDPOINT and GPT_CHAT_KEY)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Language model.
	gptOpts := []gpt.ClientOption{gpt.WithHTTPTimeout(cfg.LLM.Timeout)}
	if cfg.LLM.Model != "" {
		gptOpts = append(gptOpts, gpt.WithModel(cfg.LLM.Model))
	}
	if !strings.Contains(cfg.LLM.Endpoint, ".openai.azure.com") {
		gptOpts = append(gptOpts, gpt.WithBearerAuth())
	}
	if cfg.LLM.JSONMode {
		gptOpts = append(gptOpts, gpt.WithJSONMode())
	}
	agent := gpt.NewAgent(gpt.NewClient(cfg.LLM.Endpoint, cfg.LLM.APIKey, log, gptOpts...), log)
	extractor := extract.New(agent, log)
	analyzer := nutrition.NewAnalyzer(agent, log)

	// Recipe sources, queried in this order.
	sources := buildSources(cfg.Sources, agent, analyzer, log)
	if len(sources) == 0 {
		log.Error("no recipe sources enabled")
		os.Exit(1)
	}

	cache, err := storage.Open(ctx, cfg.Cache, log)
	if err != nil {
		log.Error("cache: %v", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
	}
	if p, ok := cache.(storage.Purger); ok {
		janitor := storage.NewJanitor(p, log, storage.WithPurgeInterval(cfg.Cache.TTL))
		janitor.Start(ctx)
		defer janitor.Stop()
	}

	aggOpts := []recipe.AggregatorOption{recipe.WithObserver(metrics.Recorder{})}
	if cache != nil {
		aggOpts = append(aggOpts, recipe.WithCache(cache, cfg.Cache.TTL))
	}
	aggregator := recipe.NewAggregator(sources, log, aggOpts...)

	srvOpts := []server.Option{
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		server.WithRateLimit(*rateLimit, time.Minute),
		server.WithSources(aggregator.Sources()),
	}
	if rc, ok := cache.(*storage.RedisCache); ok {
		srvOpts = append(srvOpts, server.WithHealthCheck("cache", rc.Ping))
	}

	srv := server.New(cfg.Server.Addr, extractor, aggregator, log, srvOpts...)
	log.Info("recipevoice-server: sources=%s cache=%s", strings.Join(aggregator.Sources(), ","), cfg.Cache.Backend)

	if err := srv.Run(ctx); err != nil {
		log.Error("server: %v", err)
		os.Exit(1)
	}
	log.Info("recipevoice-server: stopped")
}

// buildSources enables every source that has what it needs. The sample
// store goes last so real results come first.
func buildSources(cfg config.SourcesConfig, agent *gpt.Agent, analyzer *nutrition.Analyzer, log *logger.Logger) []domain.RecipeSource {
	var sources []domain.RecipeSource

	if cfg.SpoonacularKey != "" {
		sources = append(sources, recipe.NewSpoonacularSource(cfg.SpoonacularKey, log))
	} else {
		log.Info("sources: spoonacular disabled (set SPOONACULAR_API_KEY)")
	}
	if cfg.YouTubeKey != "" {
		sources = append(sources, recipe.NewYouTubeSource(cfg.YouTubeKey, analyzer, log))
	} else {
		log.Info("sources: youtube disabled (set YOUTUBE_API_KEY)")
	}
	if cfg.Blog {
		sources = append(sources, recipe.NewBlogSource(agent, analyzer, log))
	}
	if cfg.Samples {
		sources = append(sources, recipe.NewMemorySource(log))
	}

	for _, s := range sources {
		if l, ok := s.(interface{ SetLimit(int) }); ok {
			l.SetLimit(cfg.PerSource)
		}
	}
	return sources
}
