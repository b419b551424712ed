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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/rowembed/core"
	"github.com/urfave/cli/v2"
)

const (
	exitConfiguration = 1
	exitFailure       = 2
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("run failed", "err", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration problems to 1 and everything else to 2.
func exitCode(err error) int {
	if errors.Is(err, core.ErrConfiguration) {
		return exitConfiguration
	}
	return exitFailure
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "rowembed",
		Usage: "Chunk a text column of a table and embed every chunk",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		OnUsageError: func(c *cli.Context, err error, isSubcommand bool) error {
			return &core.ConfigurationError{Field: "flags", Message: "invalid usage", Err: err}
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Embed the input table and write the output tables",
				Action: runCommand,
				Flags:  runFlags(),
				OnUsageError: func(c *cli.Context, err error, isSubcommand bool) error {
					return &core.ConfigurationError{Field: "flags", Message: "invalid usage", Err: err}
				},
			},
			{
				Name:      "chunk",
				Usage:     "Print the chunks of a text without embedding them",
				ArgsUsage: "[text]",
				Action:    chunkCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "method",
						Usage: "Chunking method (none, words, characters, sentences)",
						Value: "words",
					},
					&cli.IntFlag{
						Name:  "size",
						Usage: "Chunk size in words, characters or sentences (0 uses the method default)",
					},
					&cli.IntFlag{
						Name:  "overlap",
						Usage: "Words shared by consecutive chunks (words method only)",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Read the text from a file instead of the argument",
					},
				},
			},
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Settings file (YAML or JSON); defaults to config.json/config.yaml in the data directory",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Load environment variables from this file",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "Data directory holding in/tables and out/tables",
			Value:   ".",
		},
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Input table (CSV or XLSX); defaults to the single table in <data-dir>/in/tables",
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Usage:   "Directory for output tables; defaults to <data-dir>/out/tables",
		},
		&cli.StringFlag{
			Name:  "embed-column",
			Usage: "Column holding the text to embed",
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "Embedding model name or alias (small_03, large_03, ada_002)",
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "OpenAI-compatible embedding service URL",
		},
		&cli.StringFlag{
			Name:  "chunk-method",
			Usage: "Enable chunking with this method (none, words, characters, sentences)",
		},
		&cli.IntFlag{
			Name:  "chunk-size",
			Usage: "Chunk size in words, characters or sentences",
		},
		&cli.IntFlag{
			Name:  "overlap",
			Usage: "Words shared by consecutive chunks (words method only)",
		},
		&cli.StringFlag{
			Name:  "output-format",
			Usage: "Output format (csv or json)",
		},
		&cli.BoolFlag{
			Name:  "emit-linking",
			Usage: "Write the linking table and add parent_id to the output",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of texts sent per embedding call",
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Number of embedding calls in flight",
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum attempts per embedding call",
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
		},
		&cli.Float64Flag{
			Name:  "rate-limit",
			Usage: "Maximum embedding calls per second (0 for unlimited)",
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "Directory of a persistent embedding cache",
		},
		&cli.BoolFlag{
			Name:  "normalize",
			Usage: "Scale embeddings to unit length",
		},
		&cli.BoolFlag{
			Name:  "progress-bar",
			Usage: "Render a progress bar instead of periodic progress lines",
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N rows",
			Value: 100,
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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
		return core.NewConfigurationError("log-level",
			"invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// printSummary writes the run counters in a human readable block.
func printSummary(c *cli.Context, summary core.RunSummary) {
	w := c.App.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %d rows read, %d emitted, %d dropped\n",
		successColor.Sprint("Done:"), summary.RowsRead, summary.RowsEmitted, summary.RowsDropped)
	fmt.Fprintf(w, "  records: %d  links: %d  chunks: %d\n",
		summary.RecordsWritten, summary.LinksWritten, summary.Chunks)
	fmt.Fprintf(w, "  embedded: %d  cache hits: %d  blank: %d\n",
		summary.Embedded, summary.CacheHits, summary.BlankTexts)
	if summary.FailedBatches > 0 {
		fmt.Fprintf(w, "  %s %d texts in %d failed batches have empty embeddings\n",
			warnColor.Sprint("degraded:"), summary.Degraded, summary.FailedBatches)
	}
	fmt.Fprintf(w, "  elapsed: %s\n", summary.Elapsed.Round(time.Millisecond))
}
