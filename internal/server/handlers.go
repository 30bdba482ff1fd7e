package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zork-argento/gateway/internal/assistant"
	"github.com/zork-argento/gateway/internal/zork"
)

const maxMessageLen = 4000

type successResp struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorResp struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successResp{Success: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, label string, detail string) {
	// Production hides internal detail on server-side failures.
	if status >= http.StatusInternalServerError && s.cfg.Production() {
		detail = "Algo salió mal"
	}
	writeJSON(w, status, errorResp{
		Success:   false,
		Error:     label,
		Message:   detail,
		Timestamp: nowISO(),
	})
}

// mapError translates core/upstream failures into an HTTP status and the
// short error label the clients display.
func mapError(err error) (int, string) {
	var runErr *assistant.RunError
	switch {
	case errors.Is(err, zork.ErrUnknownConversation):
		return http.StatusNotFound, "Conversación no encontrada"
	case errors.Is(err, assistant.ErrQuota):
		return http.StatusPaymentRequired, "Cuota de API insuficiente"
	case errors.Is(err, assistant.ErrAuth):
		return http.StatusUnauthorized, "API key inválida"
	case errors.Is(err, assistant.ErrRateLimit):
		return http.StatusTooManyRequests, "Límite de velocidad excedido"
	case errors.Is(err, assistant.ErrTimeout), errors.Is(err, zork.ErrRunTimeout):
		return http.StatusRequestTimeout, "Timeout en la solicitud"
	case errors.As(err, &runErr):
		return http.StatusInternalServerError, "Error de ejecución del asistente"
	}
	return http.StatusInternalServerError, "Error interno del servidor"
}

func (s *Server) writeMappedError(w http.ResponseWriter, err error) {
	status, label := mapError(err)
	s.writeError(w, status, label, err.Error())
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "JSON inválido", "El cuerpo de la solicitud no es JSON válido")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "Mensaje requerido", `El campo "message" es obligatorio y debe ser una cadena no vacía`)
		return
	}
	if utf8.RuneCountInString(req.Message) > maxMessageLen {
		s.writeError(w, http.StatusBadRequest, "Mensaje demasiado largo", "El mensaje no puede exceder 4000 caracteres")
		return
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	res, err := s.svc.Chat(r.Context(), conversationID, req.Message)
	if err != nil {
		s.log.Error("chat failed", "conversation_id", conversationID, "error", err)
		s.writeMappedError(w, err)
		return
	}

	writeData(w, map[string]any{
		"message":        res.Reply,
		"conversationId": res.ConversationID,
		"threadId":       res.ThreadID,
		"timestamp":      nowISO(),
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	info, err := s.svc.Context(r.Context(), conversationID)
	if err != nil {
		if !errors.Is(err, zork.ErrUnknownConversation) {
			s.log.Error("context lookup failed", "conversation_id", conversationID, "error", err)
		}
		s.writeMappedError(w, err)
		return
	}
	writeData(w, info)
}

func (s *Server) handleDeleteContext(w http.ResponseWriter, r *http.Request) {
	// Deliberately disabled: new-game messages are the only supported way
	// to discard a session. The store-level delete stays internal.
	s.writeError(w, http.StatusForbidden, "Operación deshabilitada",
		"La eliminación de conversaciones está deshabilitada")
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	history, err := s.svc.History(r.Context(), conversationID)
	if err != nil {
		if !errors.Is(err, zork.ErrUnknownConversation) {
			s.log.Error("history lookup failed", "conversation_id", conversationID, "error", err)
		}
		s.writeMappedError(w, err)
		return
	}
	writeData(w, map[string]any{
		"conversationId": conversationID,
		"history":        history,
		"count":          len(history),
	})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.svc.Conversations(r.Context())
	if err != nil {
		s.log.Error("conversation list failed", "error", err)
		s.writeMappedError(w, err)
		return
	}
	writeData(w, map[string]any{
		"conversations": convs,
		"count":         len(convs),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"message":   "API funcionando correctamente",
		"timestamp": nowISO(),
		"version":   s.version,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Zork Argento API - Conecta con OpenAI",
		"version": s.version,
		"endpoints": map[string]string{
			"health":        "/health",
			"chat":          "/api/chat",
			"status":        "/api/status",
			"context":       "/api/context/{conversationId}",
			"history":       "/api/history/{conversationId}",
			"conversations": "/api/conversations",
		},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "Endpoint no encontrado", "El endpoint solicitado no existe")
}
