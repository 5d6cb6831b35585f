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
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/retrievit"
	"github.com/poiesic/retrievit/ai"
	"github.com/poiesic/retrievit/core"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "retrievit",
		Usage: "Local hybrid retrieval engine over documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Index text files into the knowledge base and commit",
				ArgsUsage: "FILE [FILE...]",
				Action:    indexCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent indexing workers",
						Value: 4,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Query the knowledge base",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "page",
						Usage: "Zero-based page index",
						Value: 0,
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Results per page",
						Value: 10,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Per-query deadline (0 for none)",
						Value: 0,
					},
				),
			},
			{
				Name:   "stats",
				Usage:  "Show document, chunk and segment counts",
				Action: statsCommand,
				Flags:  commonFlags(),
			},
			{
				Name:   "optimize",
				Usage:  "Compact the index and purge deleted documents",
				Action: optimizeCommand,
				Flags:  commonFlags(),
			},
			{
				Name:      "delete",
				Usage:     "Delete a document by ID and commit",
				ArgsUsage: "ID",
				Action:    deleteCommand,
				Flags:     commonFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   "./retrievit_db",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.IntFlag{
			Name:  "embedding-dimension",
			Usage: "Embedding vector dimension",
			Value: 768,
		},
	}
}

func openEngine(c *cli.Context) (*retrievit.Engine, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithModel(c.String("embedding-model")),
		ai.WithDimension(c.Int("embedding-dimension")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	engine, err := retrievit.Open(c.String("db"), retrievit.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func indexCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	docs := make([]*core.Document, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, &core.Document{
			Title:   filepath.Base(path),
			Content: string(content),
			Metadata: map[string]string{
				"path": path,
			},
		})
	}

	ctx := context.Background()
	start := time.Now()
	result, err := engine.IndexBatch(ctx, docs)
	if err != nil {
		return err
	}
	for i, indexErr := range result.Errors {
		fmt.Fprintf(os.Stderr, "failed to index %s: %v\n", c.Args().Get(i), indexErr)
	}
	if err := engine.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	fmt.Printf("Indexed %d documents (%d failed) in %v\n",
		result.Indexed, result.Failed, time.Since(start).Round(time.Millisecond))
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("query text is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	query := core.Query{
		Text:     strings.Join(c.Args().Slice(), " "),
		Page:     c.Int("page"),
		PageSize: c.Int("page-size"),
		Timeout:  c.Duration("timeout"),
	}

	paged, err := engine.SearchPaged(context.Background(), query)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d hits in %dms (page %d of %d)\n",
		paged.TotalHits, paged.QueryTimeMs, paged.CurrentPage+1, paged.TotalPages)
	if paged.LexicalOnly {
		fmt.Println("(embedding service unavailable; lexical results only)")
	}
	for i, hit := range paged.Documents {
		fmt.Printf("%d: '%s' (%d)[%0.3f]\n",
			c.Int("page")*c.Int("page-size")+i+1, hit.Document.Title, hit.Document.Id, hit.Score)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.Statistics(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Documents: %d\n", stats.DocumentCount)
	fmt.Printf("Chunks:    %d\n", stats.ChunkCount)
	fmt.Printf("Segments:  %d\n", stats.SegmentCount)
	fmt.Printf("Cache:     %d entries, %.1f%% hit rate\n",
		stats.Cache.Entries, stats.Cache.HitRate()*100)
	return nil
}

func optimizeCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	start := time.Now()
	if err := engine.OptimizeIndex(context.Background()); err != nil {
		return err
	}
	fmt.Printf("Optimized in %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one document ID is required")
	}
	var id uint64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &id); err != nil {
		return fmt.Errorf("invalid document ID %q", c.Args().First())
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	deleted, err := engine.DeleteDocument(ctx, core.ID(id))
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Printf("Document %d not found\n", id)
		return nil
	}
	if err := engine.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	fmt.Printf("Deleted document %d\n", id)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
