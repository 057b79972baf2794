package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/djassa/djassa-backend/internal/domain"
	"github.com/djassa/djassa-backend/internal/service"
	"github.com/djassa/djassa-backend/internal/transport/http/middleware"
	"github.com/djassa/djassa-backend/pkg/validator"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.chatService.ListConversations(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR list conversations: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ChatHandler) ListThread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	counterpartID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	productID, ok := parseProductID(w, r.URL.Query().Get("product_id"))
	if !ok {
		return
	}

	messages, err := h.chatService.ListThread(r.Context(), userID, counterpartID, productID)
	if err != nil {
		if errors.Is(err, service.ErrCannotMessageSelf) {
			writeError(w, http.StatusBadRequest, "SELF_THREAD", "Cannot open a conversation with yourself")
		} else {
			log.Printf("ERROR list thread: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		RecipientID uuid.UUID     `json:"recipient_id"`
		ProductID   *uuid.UUID    `json:"product_id,omitempty"`
		Content     string        `json:"content"`
		Media       *domain.Media `json:"media,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if input.RecipientID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_RECIPIENT", "recipient_id is required")
		return
	}

	var mediaURL, mediaType string
	if input.Media != nil {
		mediaURL, mediaType = input.Media.URL, input.Media.Type
	}
	if errs := validator.ValidateMessage(input.Content, mediaURL, mediaType, input.Media != nil); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), userID, input.RecipientID, input.ProductID, input.Content, input.Media)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCannotMessageSelf):
			writeError(w, http.StatusBadRequest, "SELF_MESSAGE", "Cannot send a message to yourself")
		case errors.Is(err, service.ErrRecipientNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Recipient not found")
		case errors.Is(err, service.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "EMPTY_MESSAGE", "Message needs text or an attachment")
		default:
			log.Printf("ERROR send message: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if len(input.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "MISSING_IDS", "ids is required")
		return
	}

	if err := h.chatService.MarkRead(r.Context(), input.IDs, userID); err != nil {
		log.Printf("ERROR mark read: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	count, err := h.chatService.UnreadCount(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR unread count: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func parseProductID(w http.ResponseWriter, raw string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid product ID")
		return nil, false
	}
	return &id, true
}
