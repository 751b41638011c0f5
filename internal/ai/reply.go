package ai

import (
	"context"
	"fmt"
)

// DomainLockReply is returned verbatim when conversation drifts away from
// events; the persona prompt instructs the model to use it and GenerateReply
// never post-processes it away.
const DomainLockReply = "I can help you find, create or get reminded about events. What are you looking for?"

const personaPrompt = `You are the assistant in an event companion app. You help people discover
events, create their own events, register for events and set reminders.
Stay on those topics. If the user asks about anything unrelated, reply exactly:
"` + DomainLockReply + `"
Keep answers short and conversational. Never invent event details you were not given.`

// GenerateReply produces the assistant's conversational reply. instruction
// carries turn-specific guidance from the dialog engine (for example "the
// user has no upcoming events, say so"); history is capped at the last two
// exchanges to keep the model anchored on the current turn.
func (c *Client) GenerateReply(ctx context.Context, history []Turn, message, instruction string) (string, error) {
	system := personaPrompt
	if instruction != "" {
		system = fmt.Sprintf("%s\n\nFor this turn: %s", personaPrompt, instruction)
	}
	msgs := []chatMessage{{Role: "system", Content: system}}
	msgs = append(msgs, historyMessages(history, 4)...)
	msgs = append(msgs, chatMessage{Role: "user", Content: message})

	reply, err := c.call(ctx, c.replyTimeout, msgs)
	if err != nil {
		return "", fmt.Errorf("reply generation failed: %w", err)
	}
	return reply, nil
}
