package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/medgraph/prosearch/graph"
	"github.com/medgraph/prosearch/graph/model"
	"github.com/medgraph/prosearch/pubmed"
)

// Searcher is the literature-search boundary. Search returns up to max
// candidate PMIDs for a query; Fetch resolves one PMID to its record.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]string, error)
	Fetch(ctx context.Context, pmid string) (pubmed.Article, error)
}

// Nodes holds the pipeline's node implementations and their shared
// dependencies.
type Nodes struct {
	cfg    Config
	llm    model.ChatModel
	search Searcher
	now    func() time.Time
}

// NewNodes creates the pipeline nodes.
func NewNodes(cfg Config, llm model.ChatModel, search Searcher) *Nodes {
	return &Nodes{cfg: cfg, llm: llm, search: search, now: time.Now}
}

// GenerateQuery asks the LLM for an initial batch of search queries and
// fans out one search task per query. A query count carried in state
// overrides the configured default.
func (n *Nodes) GenerateQuery(ctx context.Context, state OverallState) graph.NodeResult[OverallState] {
	count := state.InitialSearchQueryCount
	if count <= 0 {
		count = n.cfg.NumberOfInitialQueries
	}

	prompt := queryWriterPrompt(count, currentDate(n.now()), ResearchTopic(state.Messages))
	out, err := n.llm.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}})
	if err != nil {
		return fail(NodeGenerateQuery, "query generation failed", err)
	}

	decoded, err := model.DecodeJSON[SearchQueryList](out.Text)
	if err != nil {
		return fail(NodeGenerateQuery, "query generation returned malformed output", err)
	}
	if len(decoded.Query) == 0 {
		return fail(NodeGenerateQuery, "query generation returned no queries", nil)
	}

	return graph.NodeResult[OverallState]{
		Delta: OverallState{
			InitialSearchQueryCount: count,
			SearchQueries:           decoded.Query,
		},
		Tasks: dispatch(decoded.Query, 0),
	}
}

// WebSearch runs one fan-out branch: search PubMed for the branch's
// query, then fetch each candidate record. Records with an empty
// abstract are dropped; records with an unparsable year are dropped and
// counted. A failed API call aborts the branch.
func (n *Nodes) WebSearch(ctx context.Context, state OverallState) graph.NodeResult[OverallState] {
	pmids, err := n.search.Search(ctx, state.SearchQuery, n.cfg.SearchDepth)
	if err != nil {
		return fail(NodeWebSearch, "pubmed search failed", err)
	}

	var results []SearchResult
	skipped := 0
	for _, pmid := range pmids {
		article, err := n.search.Fetch(ctx, pmid)
		if err != nil {
			return fail(NodeWebSearch, "pubmed fetch failed for "+pmid, err)
		}
		if article.Abstract == "" {
			continue
		}
		year, err := strconv.Atoi(article.Year)
		if err != nil {
			skipped++
			continue
		}
		results = append(results, SearchResult{
			Query:    state.SearchQuery,
			PMID:     article.PMID,
			Title:    article.Title,
			Year:     year,
			Citation: article.Citation,
			Abstract: article.Abstract,
		})
	}

	return graph.NodeResult[OverallState]{
		Delta: OverallState{SearchResults: results, SkippedRecords: skipped},
	}
}

// Summarize synthesizes the current loop's search results into one
// summary. It consumes only results gathered since the previous
// summary, folds the contributing queries into the persisted query
// list, and extends the gathered sources.
func (n *Nodes) Summarize(ctx context.Context, state OverallState) graph.NodeResult[OverallState] {
	batch := state.SearchResults[state.Summarized:]

	var block strings.Builder
	queries := append([]string(nil), state.SearchQueries...)
	sources := append([]string(nil), state.SourcesGathered...)
	for _, r := range batch {
		queries = append(queries, r.Query)
		sources = append(sources, r.PMID)
		fmt.Fprintf(&block, "Query:%s\nTitle:%s\nPMID:%s\nAbstract:%s\nCitation:%s\n---\n\n",
			r.Query, r.Title, r.PMID, r.Abstract, r.Citation)
	}

	prompt := webSummarizerPrompt(currentDate(n.now()), block.String())
	out, err := n.llm.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}})
	if err != nil {
		return fail(NodeSummarize, "summarization failed", err)
	}

	return graph.NodeResult[OverallState]{
		Delta: OverallState{
			SearchQueries:   dedupe(queries),
			SourcesGathered: sources,
			Summaries:       []string{out.Text},
			Summarized:      len(state.SearchResults),
		},
	}
}

// Reflect asks the LLM whether the accumulated summaries answer the
// question, advancing the loop counter and recording the count of
// queries run so far for follow-up ID offsetting.
func (n *Nodes) Reflect(ctx context.Context, state OverallState) graph.NodeResult[OverallState] {
	prompt := reflectionPrompt(ResearchTopic(state.Messages), strings.Join(state.Summaries, "\n\n---\n\n"))
	out, err := n.llm.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}})
	if err != nil {
		return fail(NodeReflect, "reflection failed", err)
	}

	decoded, err := model.DecodeJSON[Reflection](out.Text)
	if err != nil {
		return fail(NodeReflect, "reflection returned malformed output", err)
	}

	return graph.NodeResult[OverallState]{
		Delta: OverallState{
			IsSufficient:       decoded.IsSufficient,
			KnowledgeGap:       decoded.KnowledgeGap,
			FollowUpQueries:    decoded.FollowUpQueries,
			ResearchLoopCount:  state.ResearchLoopCount + 1,
			NumberOfRanQueries: len(state.SearchQueries),
		},
	}
}

// EvaluateResearch is the loop controller. It finalizes when the
// summaries are sufficient or the loop budget is spent, and otherwise
// dispatches one search task per follow-up query with IDs offset past
// every query already run. Pure routing; no state changes.
func (n *Nodes) EvaluateResearch(ctx context.Context, state OverallState) graph.NodeResult[OverallState] {
	maxLoops := state.MaxResearchLoops
	if maxLoops <= 0 {
		maxLoops = n.cfg.MaxResearchLoops
	}

	if state.IsSufficient || state.ResearchLoopCount >= maxLoops {
		return graph.NodeResult[OverallState]{Route: graph.Goto(NodeFinalize)}
	}
	if len(state.FollowUpQueries) == 0 {
		return graph.NodeResult[OverallState]{Route: graph.Goto(NodeFinalize)}
	}

	return graph.NodeResult[OverallState]{
		Tasks: dispatch(state.FollowUpQueries, state.NumberOfRanQueries),
	}
}

// Finalize produces the cited answer, appends it as the terminal
// assistant message, and deduplicates the gathered sources. This is the
// only place source deduplication happens.
func (n *Nodes) Finalize(ctx context.Context, state OverallState) graph.NodeResult[OverallState] {
	prompt := answerPrompt(currentDate(n.now()), ResearchTopic(state.Messages), strings.Join(state.Summaries, "\n\n---\n\n"))
	out, err := n.llm.Chat(ctx, []model.Message{{Role: model.RoleUser, Content: prompt}})
	if err != nil {
		return fail(NodeFinalize, "answer synthesis failed", err)
	}

	return graph.NodeResult[OverallState]{
		Delta: OverallState{
			Messages:        []model.Message{{Role: model.RoleAssistant, Content: out.Text}},
			SourcesGathered: dedupe(state.SourcesGathered),
		},
		Route: graph.Stop(),
	}
}

// dispatch builds one search task per query. IDs are sequential from
// offset so follow-up batches never reuse an earlier batch's IDs.
func dispatch(queries []string, offset int) []graph.Task[OverallState] {
	tasks := make([]graph.Task[OverallState], 0, len(queries))
	for i, q := range queries {
		tasks = append(tasks, graph.Task[OverallState]{
			Node:  NodeWebSearch,
			State: OverallState{SearchQuery: q, TaskID: offset + i},
		})
	}
	return tasks
}

func fail(nodeID, msg string, cause error) graph.NodeResult[OverallState] {
	return graph.NodeResult[OverallState]{
		Err: &graph.NodeError{Message: msg, NodeID: nodeID, Cause: cause},
	}
}
