package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"nimbus-server/internal/modules/chatbot/compose"
	"nimbus-server/internal/modules/chatbot/types"
	"nimbus-server/internal/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (c *chatbotControllerImpl) handleCompleteData(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.summarizer.CompleteData())
}

func (c *chatbotControllerImpl) handleQuery(w http.ResponseWriter, r *http.Request) {
	var query types.ChatQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	data, err := c.summarizer.FilteredData(query)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, data)
}

func (c *chatbotControllerImpl) handleStationsSummary(w http.ResponseWriter, r *http.Request) {
	summaries := c.summarizer.StationSummaries()

	raw := strings.TrimSpace(r.URL.Query().Get("station_ids"))
	if raw == "" {
		utils.WriteJSON(w, http.StatusOK, summaries)
		return
	}

	wanted := make(map[int]bool)
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "station_ids must be a comma-separated list of integers")
			return
		}
		wanted[id] = true
	}

	filtered := make([]types.StationSummary, 0, len(wanted))
	for _, s := range summaries {
		if wanted[s.StationID] {
			filtered = append(filtered, s)
		}
	}
	utils.WriteJSON(w, http.StatusOK, filtered)
}

func (c *chatbotControllerImpl) handleVariablesInfo(w http.ResponseWriter, r *http.Request) {
	infos := c.summarizer.VariablesInfo()

	raw := strings.TrimSpace(r.URL.Query().Get("variables"))
	if raw == "" {
		utils.WriteJSON(w, http.StatusOK, infos)
		return
	}

	wanted := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		wanted[strings.TrimSpace(part)] = true
	}

	filtered := make([]types.VariableInfo, 0, len(wanted))
	for _, info := range infos {
		if wanted[info.Name] {
			filtered = append(filtered, info)
		}
	}
	utils.WriteJSON(w, http.StatusOK, filtered)
}

func (c *chatbotControllerImpl) handleContext(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.summarizer.ContextInfo())
}

func (c *chatbotControllerImpl) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"ai_available": c.chat.AIAvailable(),
	})
}

func (c *chatbotControllerImpl) handleInfo(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"name":        "Nubi",
		"description": "Asistente conversacional de clima y calidad del aire",
		"capabilities": []string{
			"estado actual de estaciones",
			"promedios y series de variables",
			"conceptos de calidad del aire",
			"preguntas abiertas sobre el clima",
		},
		"ai_available": c.chat.AIAvailable(),
	})
}

func (c *chatbotControllerImpl) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg types.ChatMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(msg.Message) == "" {
		utils.WriteError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply := c.chat.Answer(r.Context(), msg.UserID, msg.Message)
	utils.WriteJSON(w, http.StatusOK, types.ChatResponse{
		Response:  reply,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    "success",
	})
}

func (c *chatbotControllerImpl) handleExplain(w http.ResponseWriter, r *http.Request) {
	var msg types.ChatMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(msg.Message) == "" {
		utils.WriteError(w, http.StatusBadRequest, "message is required")
		return
	}

	answer, err := c.chat.Explain(r.Context(), msg.Message)
	if err != nil {
		if errors.Is(err, compose.ErrNoCompleter) {
			utils.WriteError(w, http.StatusServiceUnavailable, "El servicio de IA no está disponible")
			return
		}
		slog.Error("explain failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "No se pudo generar la explicación")
		return
	}
	utils.WriteJSON(w, http.StatusOK, types.ChatResponse{
		Response:  answer,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    "success",
	})
}
