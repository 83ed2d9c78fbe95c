// Command prosearch answers a research question by iteratively
// searching PubMed, summarizing abstracts, and reflecting on gaps until
// a cited answer can be written.
//
// Usage:
//
//	prosearch -question "What is semaglutide's mechanism of action?"
//
// The LLM provider is selected with -provider (or LLM_PROVIDER) and
// reads its API key from the matching environment variable
// (ANTHROPIC_API_KEY, OPENAI_API_KEY, or GEMINI_API_KEY). An optional
// NCBI_API_KEY raises the PubMed rate limit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medgraph/prosearch/agent"
	"github.com/medgraph/prosearch/graph"
	"github.com/medgraph/prosearch/graph/emit"
	"github.com/medgraph/prosearch/graph/model"
	"github.com/medgraph/prosearch/graph/model/anthropic"
	"github.com/medgraph/prosearch/graph/model/google"
	"github.com/medgraph/prosearch/graph/model/openai"
	"github.com/medgraph/prosearch/graph/store"
	"github.com/medgraph/prosearch/pubmed"
)

func main() {
	question := flag.String("question", "", "research question to answer (required)")
	provider := flag.String("provider", os.Getenv("LLM_PROVIDER"), "llm provider: anthropic, openai, or google")
	queries := flag.Int("queries", 0, "initial search query count (0 = configured default)")
	maxLoops := flag.Int("max-loops", 0, "max research loops (0 = configured default)")
	depth := flag.Int("depth", 0, "max results per pubmed query (0 = configured default)")
	stateDB := flag.String("state-db", "", "sqlite file for per-step state (default in-memory)")
	mysqlDSN := flag.String("mysql-dsn", "", "mysql DSN for per-step state (overrides -state-db)")
	jsonLogs := flag.Bool("json", false, "emit progress events as JSON lines")
	metricsAddr := flag.String("metrics-addr", "", "listen address for /metrics (disabled when empty)")
	flag.Parse()

	if *question == "" {
		fmt.Fprintln(os.Stderr, "usage: prosearch -question \"...\" [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx := context.Background()

	overrides := map[string]string{}
	if *depth > 0 {
		overrides["search_depth"] = strconv.Itoa(*depth)
	}
	cfg := agent.ResolveConfig(overrides)

	llm, err := newChatModel(ctx, *provider)
	if err != nil {
		log.Fatalf("prosearch: %v", err)
	}

	var searchOpts []pubmed.Option
	if key := os.Getenv("NCBI_API_KEY"); key != "" {
		searchOpts = append(searchOpts, pubmed.WithAPIKey(key), pubmed.WithInterval(120*time.Millisecond))
	}
	search := pubmed.New(searchOpts...)

	st, closeStore, err := newStore(*mysqlDSN, *stateDB)
	if err != nil {
		log.Fatalf("prosearch: %v", err)
	}
	defer closeStore()

	var metrics *graph.Metrics
	if *metricsAddr != "" {
		registry := prometheus.NewRegistry()
		metrics = graph.NewMetrics(registry)
		go serveMetrics(*metricsAddr, registry)
	}

	emitter := emit.NewLogEmitter(os.Stderr, *jsonLogs)

	workflow, err := agent.NewWorkflow(cfg, llm, search, st, emitter, metrics)
	if err != nil {
		log.Fatalf("prosearch: %v", err)
	}

	var runOpts []agent.RunOption
	if *queries > 0 {
		runOpts = append(runOpts, agent.WithInitialQueryCount(*queries))
	}
	if *maxLoops > 0 {
		runOpts = append(runOpts, agent.WithMaxResearchLoops(*maxLoops))
	}

	runID := uuid.NewString()
	messages := []model.Message{{Role: model.RoleUser, Content: *question}}

	final, err := workflow.Run(ctx, runID, messages, runOpts...)
	if err != nil {
		log.Fatalf("prosearch: run %s failed: %v", runID, err)
	}

	printResult(final)
}

// newChatModel selects the LLM backend. Anthropic is the default when
// no provider is named.
func newChatModel(ctx context.Context, provider string) (model.ChatModel, error) {
	switch provider {
	case "", "anthropic":
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}
		return anthropic.NewChatModel(key, os.Getenv("ANTHROPIC_MODEL")), nil
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		return openai.NewChatModel(key, os.Getenv("OPENAI_MODEL")), nil
	case "google":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		return google.NewChatModel(ctx, key, os.Getenv("GEMINI_MODEL"))
	default:
		return nil, fmt.Errorf("unknown provider %q (want anthropic, openai, or google)", provider)
	}
}

// newStore picks the step store: MySQL when a DSN is given, SQLite when
// a file path is given, in-memory otherwise.
func newStore(mysqlDSN, sqlitePath string) (store.Store[agent.OverallState], func(), error) {
	switch {
	case mysqlDSN != "":
		s, err := store.NewMySQLStore[agent.OverallState](mysqlDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case sqlitePath != "":
		s, err := store.NewSQLiteStore[agent.OverallState](sqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return store.NewMemStore[agent.OverallState](), func() {}, nil
	}
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("prosearch: metrics server: %v", err)
	}
}

func printResult(final agent.OverallState) {
	if len(final.Messages) > 0 {
		fmt.Println(final.Messages[len(final.Messages)-1].Content)
	}
	if len(final.SourcesGathered) > 0 {
		fmt.Println("\nSources:")
		for _, pmid := range final.SourcesGathered {
			fmt.Printf("  PMID %s\n", pmid)
		}
	}
	if final.SkippedRecords > 0 {
		fmt.Fprintf(os.Stderr, "note: %d malformed records skipped during retrieval\n", final.SkippedRecords)
	}
}
