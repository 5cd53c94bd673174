package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"smartdoc/internal/config"
	"smartdoc/internal/service/docsystem"
	"smartdoc/internal/service/docsystem/converter"
	"smartdoc/internal/service/generation"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
)

// generate drafts a single document with the configured provider and prints
// it, without touching storage. Useful for trying prompts and models.
func main() {
	title := flag.String("title", "", "Document title to draft (required)")
	model := flag.String("model", "", "Model override (default: DEFAULT_MODEL or the provider default)")
	format := flag.String("format", "markdown", "Output format: markdown, html or json")
	timeout := flag.Duration("timeout", 2*time.Minute, "Give up after this long")
	flag.Parse()

	if *title == "" {
		fmt.Fprintf(os.Stderr, "%sError: --title is required%s\n", colorRed, colorReset)
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	// stdout carries the draft, so logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	provider, err := generation.NewProvider(cfg)
	if err != nil {
		fail("Failed to set up provider", err)
	}

	chosen := *model
	if chosen == "" {
		chosen = cfg.GenerationModel()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "%sDrafting %q with %s/%s...%s\n", colorCyan, *title, cfg.GenerationProvider, chosen, colorReset)
	started := time.Now()

	text, err := generation.Draft(ctx, provider, chosen, *title)
	if err != nil {
		fail("Generation failed", err)
	}
	logger.Debug("draft received", slog.Int("bytes", len(text)), slog.Duration("took", time.Since(started)))

	out, err := render(ctx, text, *format)
	if err != nil {
		fail("Failed to render draft", err)
	}

	fmt.Println(out)
	fmt.Fprintf(os.Stderr, "%sDone in %s%s\n", colorGreen, time.Since(started).Round(time.Millisecond), colorReset)
}

// render converts the model's markdown into the requested output format
func render(ctx context.Context, markdown, format string) (string, error) {
	switch format {
	case "markdown", "md":
		return markdown, nil
	case "html", "json":
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}

	tree, err := converter.NewMarkdownConverter().Convert(ctx, []byte(markdown))
	if err != nil {
		return "", err
	}

	serializer := docsystem.NewContentSerializer()
	if format == "html" {
		return serializer.ToDisplayMarkup(tree), nil
	}
	return serializer.Serialize(tree)
}

func fail(msg string, err error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "%s%s: %v (timed out or interrupted)%s\n", colorYellow, msg, err, colorReset)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%s%s: %v%s\n", colorRed, msg, err, colorReset)
	os.Exit(1)
}
