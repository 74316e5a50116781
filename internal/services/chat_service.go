package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/Lumen/internal/core"
	"github.com/markdave123-py/Lumen/internal/pkg/logger"
)

const (
	defaultContextTokens = 6000
	// historyTurns is how many previous exchanges are replayed to the model.
	historyTurns = 4
)

const chatSystemPrompt = "You are a study assistant. Answer only from the provided content. " +
	"If the answer is not in the content, say 'I cannot find this in the content.'"

// ChatService answers questions about a session's merged summary and keeps
// the exchange on the session.
type ChatService struct {
	db            core.DbClient
	llm           core.LLMProvider
	sessions      *SessionService
	contextTokens int
	log           *logger.Logger
}

func NewChatService(db core.DbClient, llm core.LLMProvider, sessions *SessionService, log *logger.Logger) *ChatService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatService{
		db:            db,
		llm:           llm,
		sessions:      sessions,
		contextTokens: defaultContextTokens,
		log:           log.With("component", "chat_service"),
	}
}

// Ask sends message with the session's content to the LLM and records the
// exchange.
func (s *ChatService) Ask(ctx context.Context, token, sessionID, message string) (string, error) {
	const op = "session chat"

	message = strings.TrimSpace(message)
	if message == "" {
		return "", core.NewError(core.ErrInvalidInput, op, "message is required")
	}
	if s.llm == nil {
		return "", core.NewError(core.ErrUpstreamUnavailable, op, "chat is not configured")
	}

	view, err := s.sessions.GetSessionForUser(ctx, token, sessionID)
	if err != nil {
		return "", err
	}
	if view.SummaryText == "" {
		return "", core.NewError(core.ErrConflict, op, "session content is still processing")
	}

	var b strings.Builder
	b.WriteString("Content:\n")
	b.WriteString(clipTokens(view.SummaryText, s.contextTokens))
	b.WriteString("\n\n")
	if turns := len(view.UserMessages); turns > 0 {
		b.WriteString("Conversation so far:\n")
		from := max(0, turns-historyTurns)
		for i := from; i < turns; i++ {
			fmt.Fprintf(&b, "User: %s\n", view.UserMessages[i])
			if i < len(view.AIResponses) {
				fmt.Fprintf(&b, "Assistant: %s\n", view.AIResponses[i])
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s", message)

	answer, err := s.llm.Generate(ctx, chatSystemPrompt, b.String())
	if err != nil {
		return "", core.WrapError(core.ErrUpstreamUnavailable, op, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", core.NewError(core.ErrUpstreamMalformed, op, "empty answer")
	}

	if err := s.db.AppendSessionExchange(ctx, sessionID, message, answer); err != nil {
		return "", core.WrapError(core.ErrStorageFailure, op, err)
	}
	return answer, nil
}

// approxTokens estimates tokens at roughly four runes each.
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}

// clipTokens keeps the head of s within the token budget.
func clipTokens(s string, budget int) string {
	if budget <= 0 || approxTokens(s) <= budget {
		return s
	}
	return string([]rune(s)[:budget*4])
}
