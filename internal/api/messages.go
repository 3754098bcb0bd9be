package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/seand52/socialDev/pkg/logger"
	"go.uber.org/zap"
)

func (h *Handler) SendMessage(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	var req struct {
		ReceiverID string `json:"receiverId" validate:"required,uuid"`
		Text       string `json:"text" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	message, err := h.message.SendMessage(e.Request().Context(), ids[0], req.ReceiverID, req.Text)
	if err != nil {
		l.Error("failed to send message", zap.String("receiver_id", req.ReceiverID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusCreated, message)
}

func (h *Handler) ListMessages(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "receiverid")
	if err != nil {
		return h.transportError(e, err)
	}

	chat, err := h.message.ListMessages(e.Request().Context(), ids[0], ids[1])
	if err != nil {
		l.Error("failed to list messages", zap.String("receiver_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, chat)
}

// FindConversation answers with null data when the two users never talked.
func (h *Handler) FindConversation(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id", "receiverid")
	if err != nil {
		return h.transportError(e, err)
	}

	conversation, err := h.message.FindConversation(e.Request().Context(), ids[0], ids[1])
	if err != nil {
		l.Error("failed to find conversation", zap.String("receiver_id", ids[1]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, conversation)
}

func (h *Handler) ListConversations(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	ids, err := h.pathIDs(e, "id")
	if err != nil {
		return h.transportError(e, err)
	}

	conversations, err := h.message.ListConversations(e.Request().Context(), ids[0])
	if err != nil {
		l.Error("failed to list conversations", zap.String("user_id", ids[0]), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return h.respond(e, http.StatusOK, conversations)
}
