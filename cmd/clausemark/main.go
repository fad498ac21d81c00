// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/clausemark"
	"github.com/poiesic/clausemark/api"
	"github.com/poiesic/clausemark/audit"
	"github.com/poiesic/clausemark/config"
	"github.com/poiesic/clausemark/core"
	"github.com/poiesic/clausemark/extract"
	"github.com/poiesic/clausemark/pdftext"
	"github.com/poiesic/clausemark/reindex"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "clausemark",
		Usage: "Evidence-linked contract audit, extraction and retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				Value:   "clausemark.yaml",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Storage directory (overrides config)",
			},
		},
		Before: func(c *cli.Context) error {
			_ = godotenv.Load()
			return setupLogger(c)
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides config)",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest PDF or text files",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
			},
			{
				Name:   "audit",
				Usage:  "Run the audit rules over a stored document or a file",
				Action: auditCommand,
				Flags:  documentFlags(),
			},
			{
				Name:   "extract",
				Usage:  "Extract contract fields from a stored document or a file",
				Action: extractCommand,
				Flags:  documentFlags(),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question with cited document regions",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   api.DefaultTopK,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Encode stored documents into the embedding index",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: reindex.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: reindex.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "resume",
						Usage: "Continue after the last indexed document",
						Value: true,
					},
				},
			},
		},
	}
}

func documentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "id",
			Usage: "ID of a stored document",
		},
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "PDF or text file to read instead of a stored document",
		},
	}
}

func loadConfig(c *cli.Context) (*config.AppConfig, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if data := c.String("data"); data != "" {
		cfg.Storage.Path = data
	}
	// The flag wins over the config file when given explicitly.
	if !c.IsSet("log-level") {
		if err := configureLogger(cfg.LogLevel); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func openSystem(c *cli.Context) (*clausemark.System, *config.AppConfig, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	sys, err := clausemark.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return sys, cfg, nil
}

func serveCommand(c *cli.Context) error {
	sys, cfg, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	addr := cfg.Server.Addr
	if a := c.String("addr"); a != "" {
		addr = a
	}

	srv := &http.Server{
		Addr: addr,
		Handler: api.NewServer(sys,
			api.WithLogger(slog.Default().With("component", "api")),
			api.WithMaxUploadBytes(int64(cfg.Server.MaxUploadMB)<<20),
			api.WithMaxTopK(cfg.Server.MaxTopK),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	sys.Wait()
	return nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}
	sys, _, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	type ingested struct {
		DocumentID core.ID `json:"document_id"`
		Filename   string  `json:"filename"`
		Pages      int     `json:"pages"`
		Chars      int     `json:"chars"`
		Duplicate  bool    `json:"duplicate,omitempty"`
	}
	var out []ingested
	for _, path := range c.Args().Slice() {
		res, err := sys.IngestFile(c.Context, path)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		out = append(out, ingested{
			DocumentID: res.Document.Id,
			Filename:   res.Document.Filename,
			Pages:      len(res.Document.Pages),
			Chars:      len(res.Document.FullText),
			Duplicate:  res.Duplicate,
		})
	}
	// Background indexing and auditing finish before storage closes.
	sys.Wait()
	return printJSON(c.App.Writer, map[string]any{"ingested": out})
}

func auditCommand(c *cli.Context) error {
	if path := c.String("file"); path != "" {
		text, err := loadText(path)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, map[string]any{"findings": audit.Run(text)})
	}

	id, err := documentID(c)
	if err != nil {
		return err
	}
	sys, _, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	findings, err := sys.Audit(c.Context, id)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}
	return printJSON(c.App.Writer, map[string]any{"document_id": id, "findings": findings})
}

func extractCommand(c *cli.Context) error {
	if path := c.String("file"); path != "" {
		text, err := loadText(path)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, map[string]any{"fields": extract.Extract(text).Map()})
	}

	id, err := documentID(c)
	if err != nil {
		return err
	}
	sys, _, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	fields, err := sys.Extract(c.Context, id)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	return printJSON(c.App.Writer, map[string]any{"document_id": id, "fields": fields.Map()})
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("question is required")
	}
	sys, cfg, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	if k := c.Int("top-k"); k > cfg.Server.MaxTopK {
		return fmt.Errorf("top-k must be at most %d", cfg.Server.MaxTopK)
	}

	resp, err := sys.Query(c.Context, question, c.Int("top-k"))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return printJSON(c.App.Writer, resp)
}

func reindexCommand(c *cli.Context) error {
	reindexConfig := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Resume:         c.Bool("resume"),
	}

	// Validate config
	if reindexConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reindexConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reindexConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	sys, cfg, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	fmt.Fprintf(c.App.ErrWriter, "Storage: %s (%s)\n", cfg.Storage.Path, cfg.Storage.Backend)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintln(c.App.ErrWriter)

	n, err := sys.Reindex(c.Context, reindexConfig, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}
	if sys.Provider().Degraded() {
		slog.Warn("embedding facilities unavailable, documents were indexed with mock vectors")
	}
	fmt.Fprintf(c.App.ErrWriter, "Indexed %d documents\n", n)
	return nil
}

func documentID(c *cli.Context) (core.ID, error) {
	raw := c.String("id")
	if raw == "" {
		return 0, fmt.Errorf("either --id or --file is required")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid document id %q", raw)
	}
	return core.ID(id), nil
}

func loadText(path string) (string, error) {
	pages, err := pdftext.Load(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	_, text := core.BuildPages(pages)
	return text, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(c *cli.Context) error {
	return configureLogger(c.String("log-level"))
}

func configureLogger(levelStr string) error {
	// Normalize to lowercase
	levelStr = strings.ToLower(levelStr)

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
