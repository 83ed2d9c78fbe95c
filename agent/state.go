// Package agent implements the research pipeline: query generation,
// parallel PubMed search, summarization, reflection, and final answer
// synthesis, orchestrated on the graph engine.
package agent

import (
	"strings"

	"github.com/medgraph/prosearch/graph/model"
)

// OverallState is the shared state for one research run. Nodes return
// partial updates; Merge folds them into the running state at each step
// boundary.
type OverallState struct {
	// Messages is the conversation. The final answer is appended as the
	// terminal assistant message.
	Messages []model.Message `json:"messages"`

	// SearchQueries accumulates every query that contributed results,
	// deduplicated in first-seen order.
	SearchQueries []string `json:"search_queries"`

	// SearchResults accumulates retrieved records across all loops.
	SearchResults []SearchResult `json:"search_results"`

	// Summaries accumulates one synthesis per research loop. Prior
	// summaries are never replaced or compacted.
	Summaries []string `json:"summaries"`

	// SourcesGathered accumulates PMIDs. Duplicates are allowed until
	// the finalizer deduplicates the set.
	SourcesGathered []string `json:"sources_gathered"`

	InitialSearchQueryCount int `json:"initial_search_query_count,omitempty"`
	MaxResearchLoops        int `json:"max_research_loops,omitempty"`
	ResearchLoopCount       int `json:"research_loop_count"`

	// NumberOfRanQueries is recorded at each reflection and offsets the
	// task IDs of follow-up dispatches so they never collide with IDs
	// from earlier loops.
	NumberOfRanQueries int `json:"number_of_ran_queries"`

	IsSufficient    bool     `json:"is_sufficient"`
	KnowledgeGap    string   `json:"knowledge_gap,omitempty"`
	FollowUpQueries []string `json:"follow_up_queries,omitempty"`

	// Summarized is the high-water mark into SearchResults. The
	// summarizer consumes SearchResults[Summarized:] so each loop
	// summarizes only its own batch.
	Summarized int `json:"summarized"`

	// SkippedRecords counts search records dropped for malformed data.
	SkippedRecords int `json:"skipped_records"`

	// SearchQuery and TaskID are branch-local fields carried by fan-out
	// tasks; they are meaningless on the merged state.
	SearchQuery string `json:"search_query,omitempty"`
	TaskID      int    `json:"task_id,omitempty"`
}

// SearchResult is one retrieved PubMed record. Created by the search
// node, read-only afterward.
type SearchResult struct {
	Query    string `json:"query"`
	PMID     string `json:"pmid"`
	Title    string `json:"title"`
	Year     int    `json:"year"`
	Citation string `json:"citation"`
	Abstract string `json:"abstract"`
}

// SearchQueryList is the structured output of the query generator.
type SearchQueryList struct {
	Rationale string   `json:"rationale"`
	Query     []string `json:"query"`
}

// Reflection is the structured output of the reflection evaluator.
type Reflection struct {
	IsSufficient    bool     `json:"is_sufficient"`
	KnowledgeGap    string   `json:"knowledge_gap"`
	FollowUpQueries []string `json:"follow_up_queries"`
}

// Merge folds a node's partial update into the running state. It is the
// engine's reducer and must stay deterministic; fan-out branches are
// merged in task order.
func Merge(prev, delta OverallState) OverallState {
	out := prev

	out.Messages = append(out.Messages, delta.Messages...)
	out.SearchResults = append(out.SearchResults, delta.SearchResults...)
	out.Summaries = append(out.Summaries, delta.Summaries...)

	if delta.SearchQueries != nil {
		out.SearchQueries = delta.SearchQueries
	}
	if delta.SourcesGathered != nil {
		out.SourcesGathered = delta.SourcesGathered
	}
	if delta.InitialSearchQueryCount > 0 {
		out.InitialSearchQueryCount = delta.InitialSearchQueryCount
	}
	if delta.MaxResearchLoops > 0 {
		out.MaxResearchLoops = delta.MaxResearchLoops
	}

	// Counters only move forward.
	if delta.ResearchLoopCount > out.ResearchLoopCount {
		out.ResearchLoopCount = delta.ResearchLoopCount
	}
	if delta.NumberOfRanQueries > out.NumberOfRanQueries {
		out.NumberOfRanQueries = delta.NumberOfRanQueries
	}
	if delta.Summarized > out.Summarized {
		out.Summarized = delta.Summarized
	}

	// Sufficiency latches: once true it stays true.
	out.IsSufficient = out.IsSufficient || delta.IsSufficient

	if delta.KnowledgeGap != "" {
		out.KnowledgeGap = delta.KnowledgeGap
	}
	if delta.FollowUpQueries != nil {
		out.FollowUpQueries = delta.FollowUpQueries
	}

	out.SkippedRecords += delta.SkippedRecords

	if delta.SearchQuery != "" {
		out.SearchQuery = delta.SearchQuery
	}
	if delta.TaskID > 0 {
		out.TaskID = delta.TaskID
	}

	return out
}

// ResearchTopic derives the topic from the conversation. A single
// message is used verbatim; longer conversations are flattened into a
// role-prefixed transcript.
func ResearchTopic(messages []model.Message) string {
	if len(messages) == 1 {
		return messages[0].Content
	}
	var b strings.Builder
	for _, msg := range messages {
		if msg.Role == model.RoleAssistant {
			b.WriteString("Assistant: " + msg.Content + "\n")
		} else {
			b.WriteString("User: " + msg.Content + "\n")
		}
	}
	return b.String()
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
