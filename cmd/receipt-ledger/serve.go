package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/peterbourgon/ff/v4"

	"github.com/zombor/receipt-ledger/internal/categorize"
	"github.com/zombor/receipt-ledger/internal/extraction"
	"github.com/zombor/receipt-ledger/internal/receipt"
)

type serveConfig struct {
	port          *int
	dbPath        *string
	storagePath   *string
	authUser      *string
	authPass      *string
	suggester     *string
	openAIKey     *string
	openAIModel   *string
	openAIBaseURL *string
	cacheSize     *int
	cacheTTL      *time.Duration
}

func newServeCommand(root *rootConfig, parent *ff.FlagSet) *ff.Command {
	fs := ff.NewFlagSet("serve").SetParent(parent)
	cfg := &serveConfig{
		port:          fs.IntLong("port", 8080, "HTTP server port"),
		dbPath:        fs.StringLong("db", "receipt-ledger.db", "Database file path"),
		storagePath:   fs.StringLong("storage", "./receipts", "Storage directory path"),
		authUser:      fs.StringLong("auth-user", "", "Basic auth username (optional)"),
		authPass:      fs.StringLong("auth-pass", "", "Basic auth password (optional)"),
		suggester:     fs.StringLong("suggester", "auto", "Category suggester: 'auto', 'openai' or 'keyword'"),
		openAIKey:     fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)"),
		openAIModel:   fs.StringLong("openai-model", "gpt-3.5-turbo", "OpenAI chat model name"),
		openAIBaseURL: fs.StringLong("openai-base-url", "", "OpenAI compatible API base URL (optional)"),
		cacheSize:     fs.IntLong("cache-size", categorize.DefaultCacheSize, "Maximum cached category suggestions"),
		cacheTTL:      fs.DurationLong("cache-ttl", categorize.DefaultCacheTTL, "Lifetime of a cached category suggestion"),
	}

	return &ff.Command{
		Name:      "serve",
		Usage:     "receipt-ledger serve [FLAGS]",
		ShortHelp: "run the HTTP API",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := root.before(); err != nil {
				return err
			}
			return runServe(ctx, root, cfg)
		},
	}
}

func runServe(ctx context.Context, root *rootConfig, cfg *serveConfig) error {
	// Initialize database
	slog.Info("Initializing database...", "path", *cfg.dbPath)
	db, err := receipt.NewBoltDB(*cfg.dbPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	source, err := root.source.newSource()
	if err != nil {
		return fmt.Errorf("initializing source: %w", err)
	}
	defer source.Close()

	// Initialize storage
	slog.Info("Initializing storage...", "path", *cfg.storagePath)
	store, err := receipt.NewLocalStorage(*cfg.storagePath)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	suggester, err := cfg.newSuggester()
	if err != nil {
		return fmt.Errorf("initializing suggester: %w", err)
	}

	pipeline := extraction.NewPipeline(*root.source.timeout)
	receiptService := receipt.NewService(db, source, pipeline, store, suggester)

	server := receipt.NewServer(receiptService, receipt.BasicAuth{
		Username: *cfg.authUser,
		Password: *cfg.authPass,
	})

	addr := fmt.Sprintf(":%d", *cfg.port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *cfg.authUser != "" || *cfg.authPass != "" {
		slog.Info("Basic auth enabled", "user", *cfg.authUser)
	}

	return server.Start(ctx, addr)
}

// newSuggester picks the OpenAI model when a key is available (or required)
// and keyword matching otherwise.
func (c *serveConfig) newSuggester() (*categorize.Suggester, error) {
	cache := categorize.NewCache(*c.cacheSize, *c.cacheTTL)
	apiKey := firstNonEmpty(*c.openAIKey, os.Getenv("OPENAI_API_KEY"))

	switch *c.suggester {
	case "keyword":
		slog.Info("Using keyword category suggestions")
		return categorize.NewSuggester(nil, cache), nil
	case "auto":
		if apiKey == "" {
			slog.Info("No OpenAI key configured, using keyword category suggestions")
			return categorize.NewSuggester(nil, cache), nil
		}
	case "openai":
	default:
		return nil, fmt.Errorf("invalid suggester %q (valid: auto, openai, keyword)", *c.suggester)
	}

	model, err := categorize.NewOpenAIModel(categorize.OpenAIConfig{
		APIKey:     apiKey,
		Model:      *c.openAIModel,
		BaseURL:    *c.openAIBaseURL,
		MaxRetries: 2,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Using OpenAI category suggestions", "model", *c.openAIModel)
	return categorize.NewSuggester(model, cache), nil
}
