package service

import (
	"context"
	"log/slog"

	"nimbus-server/internal/modules/chatbot/compose"
	"nimbus-server/internal/modules/chatbot/heuristic"
	"nimbus-server/internal/modules/chatbot/intent"
	"nimbus-server/internal/session"
)

// Session id used when the client does not identify itself.
const defaultSessionID = "anonymous"

// ChatService answers conversational messages. Heuristics run first, then
// intent resolution against the session's pending menu, with the AI backend
// as the last step for anything the rules cannot settle.
type ChatService interface {
	Answer(ctx context.Context, sessionID, message string) string
	Explain(ctx context.Context, message string) (string, error)
	AIAvailable() bool
}

type ChatServiceImpl struct {
	heuristics  *heuristic.Responder
	resolver    *intent.Resolver
	composer    *compose.Composer
	sessions    *session.Store
	aiAvailable bool
}

func NewChatService(
	heuristics *heuristic.Responder,
	resolver *intent.Resolver,
	composer *compose.Composer,
	sessions *session.Store,
	aiAvailable bool,
) ChatService {
	return &ChatServiceImpl{
		heuristics:  heuristics,
		resolver:    resolver,
		composer:    composer,
		sessions:    sessions,
		aiAvailable: aiAvailable,
	}
}

// Answer produces a reply and updates the session's menu and transcript.
// Session storage failures degrade to stateless behavior instead of failing
// the message.
func (s *ChatServiceImpl) Answer(ctx context.Context, sessionID, message string) string {
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	if reply, ok := s.heuristics.TryAnswer(message); ok {
		// A heuristic greeting answers without showing a menu, so any
		// pending menu no longer applies.
		if intent.IsGreeting(message) {
			s.setMenu(ctx, sessionID, session.MenuNone)
		}
		s.record(ctx, sessionID, message, reply)
		return reply
	}

	menu, err := s.sessions.Menu(ctx, sessionID)
	if err != nil {
		slog.Warn("reading session menu", "session", sessionID, "error", err)
		menu = session.MenuNone
	}

	in := s.resolver.Resolve(ctx, message, menu)
	reply, newMenu := s.composer.Render(ctx, in, menu)

	s.setMenu(ctx, sessionID, newMenu)
	s.record(ctx, sessionID, message, reply)

	slog.Info("chat answered",
		"session", sessionID,
		"action", in.Action,
		"menu", newMenu,
	)
	return reply
}

// Explain bypasses heuristics and intent rules and always asks the AI
// backend with an expert persona.
func (s *ChatServiceImpl) Explain(ctx context.Context, message string) (string, error) {
	return s.composer.ExplainForced(ctx, message)
}

func (s *ChatServiceImpl) AIAvailable() bool {
	return s.aiAvailable
}

func (s *ChatServiceImpl) setMenu(ctx context.Context, sessionID, menu string) {
	if err := s.sessions.SetMenu(ctx, sessionID, menu); err != nil {
		slog.Warn("persisting session menu", "session", sessionID, "error", err)
	}
}

func (s *ChatServiceImpl) record(ctx context.Context, sessionID, message, reply string) {
	if err := s.sessions.Append(ctx, sessionID, "user", message); err != nil {
		slog.Warn("recording user message", "session", sessionID, "error", err)
		return
	}
	if err := s.sessions.Append(ctx, sessionID, "assistant", reply); err != nil {
		slog.Warn("recording assistant reply", "session", sessionID, "error", err)
	}
}
