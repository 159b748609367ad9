package chatbot

import (
	"github.com/gorilla/mux"

	"nimbus-server/internal/ai"
	"nimbus-server/internal/modules/chatbot/compose"
	"nimbus-server/internal/modules/chatbot/controller"
	"nimbus-server/internal/modules/chatbot/heuristic"
	"nimbus-server/internal/modules/chatbot/intent"
	"nimbus-server/internal/modules/chatbot/service"
	"nimbus-server/internal/modules/chatbot/summary"
	"nimbus-server/internal/session"
	"nimbus-server/internal/store"
)

// RegisterFeature wires the chatbot endpoints. classifier and completer may
// be nil; the assistant then runs on heuristics and deterministic rules only.
func RegisterFeature(
	router *mux.Router,
	st *store.Store,
	sessions *session.Store,
	classifier ai.Classifier,
	completer ai.Completer,
) service.ChatService {
	chatService := service.NewChatService(
		heuristic.NewResponder(st),
		intent.NewResolver(classifier),
		compose.NewComposer(st, completer),
		sessions,
		completer != nil,
	)
	chatbotController := controller.NewChatbotController(chatService, summary.NewSummarizer(st))
	chatbotController.RegisterRoutes(router)
	return chatService
}
