// Command irsearch builds an index from the configured corpus source and
// queries it from the command line.
//
//	irsearch demo                          run the stock boolean and ranked queries
//	irsearch search -q "a AND b" [-mode boolean|ranked] [-k 10]
//	irsearch dump   [-matrix]              print the inverted index or occurrence matrix
//	irsearch seed   -from file|wikipedia   copy a corpus into the postgres table
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/inspect"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/irsearch/internal/source"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/postgres"
)

type demoQuery struct {
	label string
	query string
	mode  executor.Mode
}

var demoQueries = []demoQuery{
	{"Search for %q", "information AND retrieval", executor.ModeBoolean},
	{"Search for %q", "learning OR processing", executor.ModeBoolean},
	{"TF-IDF search for %q", "information retrieval", executor.ModeRanked},
	{"TF-IDF search for %q", "learning processing", executor.ModeRanked},
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// Logs go to stderr so stdout stays clean for results.
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, "text")

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "demo":
		err = cmdDemo(ctx, cfg, args[1:])
	case "search":
		err = cmdSearch(ctx, cfg, args[1:])
	case "dump":
		err = cmdDump(ctx, cfg, args[1:])
	case "seed":
		err = cmdSeed(ctx, cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		os.Exit(1)
	}
}

func cmdDemo(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	dump := fs.Bool("dump", false, "also print the inverted index and occurrence matrix")
	fs.Parse(args)

	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	if err := runDemo(ctx, os.Stdout, executor.New(engine, nil), cfg.Search.DefaultTopK); err != nil {
		return err
	}
	if *dump {
		return dumpAll(os.Stdout, engine.Index())
	}
	return nil
}

func cmdSearch(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("q", "", "query text")
	modeFlag := fs.String("mode", "ranked", "boolean or ranked")
	k := fs.Int("k", cfg.Search.DefaultTopK, "number of ranked results")
	fs.Parse(args)

	if *query == "" {
		return fmt.Errorf("-q is required")
	}
	mode, err := executor.ParseMode(*modeFlag)
	if err != nil {
		return err
	}
	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	result, err := executor.New(engine, nil).Execute(ctx, executor.Request{Query: *query, Mode: mode, TopK: *k})
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, result)
}

func cmdDump(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	matrix := fs.Bool("matrix", false, "print the occurrence matrix instead of the inverted index")
	fs.Parse(args)

	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	if *matrix {
		return inspect.DumpOccurrenceMatrix(os.Stdout, engine.Index())
	}
	return inspect.DumpInvertedIndex(os.Stdout, engine.Index())
}

// cmdSeed copies a corpus from another source into the postgres table the
// postgres source reads from.
func cmdSeed(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	from := fs.String("from", config.SourceWikipedia, "source to copy from: file or wikipedia")
	fs.Parse(args)

	if *from == config.SourcePostgres {
		return fmt.Errorf("cannot seed postgres from itself")
	}
	srcCfg := *cfg
	srcCfg.Source.Kind = *from
	docs, err := loadCorpus(ctx, &srcCfg)
	if err != nil {
		return err
	}

	client, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer client.Close()
	if err := source.NewPostgres(client, cfg.Source.Table).Seed(ctx, docs); err != nil {
		return err
	}
	fmt.Printf("Seeded %d documents into %s\n", len(docs), cfg.Source.Table)
	return nil
}

func loadCorpus(ctx context.Context, cfg *config.Config) ([]index.Document, error) {
	src, closeSource, err := source.New(ctx, cfg, metrics.New(nil))
	if err != nil {
		return nil, err
	}
	defer closeSource()

	slog.Info("loading corpus", "source", src.Name())
	docs, err := source.Load(ctx, src, cfg.Source.LoadTimeout)
	if err != nil {
		return nil, err
	}
	slog.Info("corpus loaded", "documents", len(docs))
	return docs, nil
}

func buildEngine(ctx context.Context, cfg *config.Config) (*indexer.Engine, error) {
	docs, err := loadCorpus(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return indexer.NewEngine(docs, nil), nil
}

func runDemo(ctx context.Context, w io.Writer, exec *executor.Executor, topK int) error {
	for _, dq := range demoQueries {
		result, err := exec.Execute(ctx, executor.Request{Query: dq.query, Mode: dq.mode, TopK: topK})
		if err != nil {
			return fmt.Errorf("running %q: %w", dq.query, err)
		}
		fmt.Fprintf(w, "\n"+dq.label+":\n", dq.query)
		if err := printJSON(w, result.Results); err != nil {
			return err
		}
	}
	return nil
}

func dumpAll(w io.Writer, idx *index.Index) error {
	fmt.Fprintln(w, "\nPrinting Occurrence Matrix:")
	if err := inspect.DumpOccurrenceMatrix(w, idx); err != nil {
		return err
	}
	fmt.Fprintln(w, "\nPrinting Inverted Index:")
	return inspect.DumpInvertedIndex(w, idx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: irsearch [-config file] <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  demo     Run the stock boolean and TF-IDF queries")
	fmt.Fprintln(os.Stderr, "  search   Run a single query")
	fmt.Fprintln(os.Stderr, "  dump     Print the inverted index or occurrence matrix")
	fmt.Fprintln(os.Stderr, "  seed     Copy a corpus into the postgres documents table")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, `  irsearch search -q "learning OR processing" -mode boolean`)
	fmt.Fprintln(os.Stderr, `  IRS_SOURCE_KIND=file IRS_SOURCE_FILE=corpus.yaml irsearch dump -matrix`)
}
