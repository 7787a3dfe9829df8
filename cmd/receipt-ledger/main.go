package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

// rootConfig holds the flags shared by every subcommand
type rootConfig struct {
	logFormat   *string
	logLevel    *string
	showVersion *bool
	source      sourceConfig
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// An optional .env file; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(os.Stdout)
	if err := root.ParseAndRun(ctx, os.Args[1:], ff.WithEnvVarPrefix("RECEIPT_LEDGER")); err != nil {
		if errors.Is(err, ff.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
			os.Exit(0)
		}
		if errors.Is(err, ff.ErrNoExec) {
			fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(stdout io.Writer) *ff.Command {
	fs := ff.NewFlagSet("receipt-ledger")
	cfg := &rootConfig{
		logFormat:   fs.StringLong("log-format", "text", "Log format: 'text' or 'json'"),
		logLevel:    fs.StringLong("log-level", "info", "Log level: debug, info, warn or error"),
		showVersion: fs.BoolLong("version", "Show version information"),
	}
	cfg.source.register(fs)

	root := &ff.Command{
		Name:      "receipt-ledger",
		Usage:     "receipt-ledger [FLAGS] <SUBCOMMAND> ...",
		ShortHelp: "turn receipt images into expense records",
		Flags:     fs,
	}
	root.Subcommands = []*ff.Command{
		newServeCommand(cfg, fs),
		newScanCommand(cfg, fs, stdout),
	}
	return root
}

// setupLogging installs the default slog handler on stderr
func setupLogging(format, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	case "json":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	default:
		return fmt.Errorf("invalid log format %q (valid: text, json)", format)
	}
	return nil
}

// before runs the shared setup for every subcommand
func (c *rootConfig) before() error {
	if *c.showVersion {
		fmt.Println(version)
		os.Exit(0)
	}
	return setupLogging(*c.logFormat, *c.logLevel)
}
