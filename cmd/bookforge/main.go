// Command bookforge turns directories of compressed novel archives into
// size-bounded reader artifacts: chapter-split text segments plus JSON
// indexes. It also serves the artifacts to reader clients and runs quality
// checks over previously built output.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/inkstone/bookforge/core/chapter"
	"github.com/inkstone/bookforge/core/segment"
	"github.com/inkstone/bookforge/core/sqlite"
	"github.com/inkstone/bookforge/internal/logging"
	"github.com/inkstone/bookforge/internal/pipeline"
	"github.com/inkstone/bookforge/internal/quality"
	"github.com/inkstone/bookforge/internal/server"
)

const version = "0.2.0"

// CLI defines the command-line interface for bookforge.
var CLI struct {
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`

	Build   BuildCmd   `cmd:"" help:"Process novel archives into segments and indexes"`
	Check   CheckCmd   `cmd:"" help:"Run quality checks over built chapter indexes"`
	Parse   ParseCmd   `cmd:"" help:"Parse a single text file and print detected chapters"`
	Serve   ServeCmd   `cmd:"" help:"Serve built artifacts to reader clients"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// BuildCmd runs the batch pipeline over a source directory.
type BuildCmd struct {
	Source          string `arg:"" help:"Directory of novel archives" type:"existingdir"`
	Out             string `required:"" short:"o" help:"Output directory" type:"path"`
	Force           bool   `help:"Reprocess every archive regardless of digest"`
	ReparseFallback bool   `name:"reparse-fallback" help:"Reprocess books that previously fell back to fixed-size partitioning"`
}

func (c *BuildCmd) Run() error {
	ctx, stop := signalContext()
	defer stop()

	runner := pipeline.NewRunner(pipeline.Options{
		SourceDir:       c.Source,
		OutDir:          c.Out,
		Weights:         chapter.DefaultWeights(),
		Force:           c.Force,
		ReparseFallback: c.ReparseFallback,
	}, nil)

	sum, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("processed %d, skipped %d, failed %d, removed %d\n",
		sum.Processed, sum.Skipped, sum.Failed, sum.Removed)
	if sum.Failed > 0 {
		return fmt.Errorf("%d book(s) failed", sum.Failed)
	}
	return nil
}

// CheckCmd inspects built indexes for detection defects.
type CheckCmd struct {
	Out    string `arg:"" help:"Output directory with built indexes" type:"existingdir"`
	Book   string `help:"Check a single book ID"`
	Errors bool   `help:"Only print books with issues"`
}

func (c *CheckCmd) Run() error {
	var reports []*quality.BookReport
	if c.Book != "" {
		idx, err := segment.LoadIndex(segmentIndexPath(c.Out, c.Book))
		if err != nil {
			return fmt.Errorf("load index for %s: %w", c.Book, err)
		}
		reports = append(reports, quality.CheckIndex(idx))
	} else {
		var err error
		reports, err = quality.CheckDir(c.Out)
		if err != nil {
			return err
		}
	}

	booksWithIssues, totalIssues := 0, 0
	for _, r := range reports {
		if len(r.Issues) == 0 && !r.FallbackOnly {
			if !c.Errors {
				fmt.Printf("ok    %-40s %4d chapters\n", r.BookID, r.TotalChapters)
			}
			continue
		}
		booksWithIssues++
		totalIssues += len(r.Issues)
		fmt.Printf("ISSUE %-40s %4d chapters", r.BookID, r.TotalChapters)
		if r.FallbackOnly {
			fmt.Print("  [fallback-only]")
		}
		fmt.Println()
		for _, issue := range r.Issues {
			fmt.Printf("      [%s] %s ch%d: %s (%s)\n",
				issue.Severity, issue.Type, issue.Chapter, issue.Title, issue.Detail)
		}
	}

	fmt.Printf("\n%d book(s) checked, %d with issues, %d issue(s) total\n",
		len(reports), booksWithIssues, totalIssues)
	if totalIssues > 0 {
		return fmt.Errorf("quality issues found")
	}
	return nil
}

// ParseCmd runs chapter detection on one already-decompressed text file and
// prints the resulting chapter list. Useful when tuning a problem book.
type ParseCmd struct {
	Path  string `arg:"" help:"UTF-8 text file to parse" type:"existingfile"`
	Lines bool   `help:"Also print line ranges"`
}

func (c *ParseCmd) Run() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}

	res, err := chapter.Parse(string(data), chapter.DefaultWeights())
	if err != nil {
		return err
	}

	if res.Fallback {
		fmt.Println("no headings detected, fixed-size fallback partition:")
	}
	for i, ch := range res.Chapters {
		if c.Lines {
			fmt.Printf("%4d  %s  (lines %d-%d)\n", i+1, ch.Title, ch.StartLine+1, ch.EndLine)
		} else {
			fmt.Printf("%4d  %s\n", i+1, ch.Title)
		}
	}
	fmt.Printf("\n%d chapter(s)\n", len(res.Chapters))
	return nil
}

// ServeCmd serves built artifacts over HTTP.
type ServeCmd struct {
	Out    string   `arg:"" help:"Output directory with built artifacts" type:"existingdir"`
	Addr   string   `default:":8080" help:"Listen address"`
	Source string   `help:"Source archive directory; enables POST /api/rebuild" type:"path"`
	Origin []string `help:"Allowed CORS origins (default: allow all)"`
}

func (c *ServeCmd) Run() error {
	ctx, stop := signalContext()
	defer stop()

	srv := server.New(server.Config{
		Addr:      c.Addr,
		OutDir:    c.Out,
		SourceDir: c.Source,
		CORS:      server.CORSConfig{AllowedOrigins: c.Origin},
		Pipeline: pipeline.Options{
			SourceDir: c.Source,
			OutDir:    c.Out,
			Weights:   chapter.DefaultWeights(),
		},
	})
	return srv.ListenAndServe(ctx)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("bookforge %s (sqlite driver: %s)\n", version, sqlite.DriverType())
	return nil
}

func segmentIndexPath(outDir, bookID string) string {
	return filepath.Join(outDir, segment.IndexFilename(bookID))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("bookforge"),
		kong.Description("Novel archive ingestion: chapter detection, segmenting, and serving."),
		kong.UsageOnError(),
	)

	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), format)

	ctx.FatalIfErrorf(ctx.Run())
}
