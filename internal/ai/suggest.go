package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// SuggestReplies proposes up to three short follow-up messages the user might
// send next. Best effort only; callers substitute a fixed set on error.
func (c *Client) SuggestReplies(ctx context.Context, intent, lastReply string) ([]string, error) {
	prompt := fmt.Sprintf(`In an event assistant chat the conversation is currently about %q and the
assistant just said: %q
Suggest three short messages (under eight words each) the user might
plausibly send next. Respond with ONLY a JSON array of three strings.`, intent, lastReply)

	raw, err := c.call(ctx, c.extractTimeout, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("suggestion generation failed: %w", err)
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &suggestions); err != nil {
		return nil, fmt.Errorf("suggestion generation returned malformed JSON: %w", err)
	}
	out := make([]string, 0, 3)
	for _, s := range suggestions {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == 3 {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("suggestion generation returned no usable entries")
	}
	return out, nil
}
