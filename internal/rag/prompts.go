package rag

import (
	"strings"

	"github.com/ziadkadry99/propwise/internal/vectordb"
)

// answerTemplate frames the retrieved chunks for the generator.
const answerTemplate = "You are a helpful assistant for RealEstate research.\n" +
	"Answer the question based on the following summaries:\n{context}\nQuestion: {question}\nAnswer:"

// chunkTemplate renders one retrieved chunk inside {context}.
const chunkTemplate = "Content: {content}\nSource: {source}"

// BuildPrompt fills the answer template with the question and the
// retrieved chunks, in retrieval order.
func BuildPrompt(question string, results []vectordb.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = strings.NewReplacer(
			"{content}", r.Record.Text,
			"{source}", r.Record.Metadata.Source,
		).Replace(chunkTemplate)
	}
	// A single Replacer pass never rescans inserted text, so braces inside
	// chunk content are left alone.
	return strings.NewReplacer(
		"{context}", strings.Join(parts, "\n\n"),
		"{question}", question,
	).Replace(answerTemplate)
}

// UniqueSources returns the distinct source URLs of results in order of
// first occurrence. It never returns nil.
func UniqueSources(results []vectordb.SearchResult) []string {
	seen := make(map[string]bool, len(results))
	out := []string{}
	for _, src := range vectordb.Sources(results) {
		if seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}
