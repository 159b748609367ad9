// Package controller exposes the chatbot endpoints: the structured dataset
// views consumed by external assistants and the conversational message and
// explain routes.
package controller

import (
	"net/http"

	"github.com/gorilla/mux"

	"nimbus-server/internal/modules/chatbot/service"
	"nimbus-server/internal/modules/chatbot/summary"
)

type ChatbotController interface {
	RegisterRoutes(router *mux.Router)
}

type chatbotControllerImpl struct {
	chat       service.ChatService
	summarizer *summary.Summarizer
}

func NewChatbotController(chat service.ChatService, summarizer *summary.Summarizer) ChatbotController {
	return &chatbotControllerImpl{chat: chat, summarizer: summarizer}
}

func (c *chatbotControllerImpl) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/chatbot/data", c.handleCompleteData).Methods(http.MethodGet)
	router.HandleFunc("/chatbot/query", c.handleQuery).Methods(http.MethodPost)
	router.HandleFunc("/chatbot/stations/summary", c.handleStationsSummary).Methods(http.MethodGet)
	router.HandleFunc("/chatbot/variables/info", c.handleVariablesInfo).Methods(http.MethodGet)
	router.HandleFunc("/chatbot/context", c.handleContext).Methods(http.MethodGet)
	router.HandleFunc("/chatbot/health", c.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/chatbot/info", c.handleInfo).Methods(http.MethodGet)
	router.HandleFunc("/chatbot/message", c.handleMessage).Methods(http.MethodPost)
	router.HandleFunc("/chatbot/explain", c.handleExplain).Methods(http.MethodPost)
}
