package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Candidate is one search hit offered for validation.
type Candidate struct {
	Title   string
	URL     string
	Snippet string
}

// ValidateEventCandidates asks the model which search hits describe actual
// events rather than listicles, ticket resellers or generic pages, and
// returns their 0-based indices. The prompt is inclusion-biased: borderline
// hits are kept, because a dropped real event costs more than a kept dud.
// Callers fall back to a local heuristic when this errors.
func (c *Client) ValidateEventCandidates(ctx context.Context, candidates []Candidate) ([]int, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	var list strings.Builder
	for i, cand := range candidates {
		fmt.Fprintf(&list, "%d. %s | %s | %s\n", i, cand.Title, cand.URL, cand.Snippet)
	}
	prompt := fmt.Sprintf(`These are web search results for an event query:
%s
Which entries describe a specific real-world event someone could attend?
When in doubt, include the entry. Exclude only obvious non-events such as
how-to articles, listicles, ticket marketplaces and venue home pages.
Respond with ONLY a JSON array of the matching numbers, like [0,2,3].`, list.String())

	raw, err := c.call(ctx, c.extractTimeout, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("candidate validation failed: %w", err)
	}

	var indices []int
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &indices); err != nil {
		return nil, fmt.Errorf("candidate validation returned malformed JSON: %w", err)
	}
	kept := make([]int, 0, len(indices))
	seen := make(map[int]bool)
	for _, idx := range indices {
		if idx < 0 || idx >= len(candidates) || seen[idx] {
			continue
		}
		seen[idx] = true
		kept = append(kept, idx)
	}
	return kept, nil
}
