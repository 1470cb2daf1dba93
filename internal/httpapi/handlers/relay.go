package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/n8n-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/n8n-chat/internal/log"
	"github.com/suPer8Hu/n8n-chat/internal/relay"
	"github.com/suPer8Hu/n8n-chat/internal/sendguard"
)

const (
	busyText         = "A reply for this conversation is still in progress. Please wait for it before sending another message."
	unauthorizedText = "Please sign in to chat."
	emptyMessageText = "Please enter a message."
)

type askReq struct {
	Question string `json:"question"`
}

// Ask serves the standalone form. No account needed.
func (h *Handler) Ask(c *gin.Context) {
	var req askReq
	_ = c.ShouldBindJSON(&req) // bad json is the same as no question

	res, err := h.AskRelay.Ask(c.Request.Context(), relay.AskRequest{Question: req.Question})
	if errors.Is(err, relay.ErrEmptyMessage) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Question is required",
			"response": emptyMessageText,
		})
		return
	}
	if res.Failed() {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":  false,
			"error":    "Failed to process question",
			"response": res.Text,
		})
		return
	}

	var data any
	if len(res.Raw) > 0 {
		data = res.Raw
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Question processed successfully",
		"response": res.Text,
		"data":     data,
	})
}

type chatReq struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	// UserID is accepted for older clients and ignored; the token decides.
	UserID string `json:"userId"`
}

// Chat relays one chat message for an authenticated user. Every status
// carries a displayable "response".
func (h *Handler) Chat(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "response": unauthorizedText})
		return
	}

	var req chatReq
	_ = c.ShouldBindJSON(&req)

	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required", "response": emptyMessageText})
		return
	}

	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	if req.ConversationID != "" {
		release, err := h.Guard.Acquire(ctx, sendKey(uid, req.ConversationID))
		switch {
		case errors.Is(err, sendguard.ErrBusy):
			if h.Metrics != nil {
				h.Metrics.SendsRejectedTotal.Inc()
			}
			c.JSON(http.StatusConflict, gin.H{"response": busyText})
			return
		case err != nil:
			// lock store down: carry on unguarded
			l.Warn().Err(err).Str(log.FieldConversationID, req.ConversationID).Msg("send guard unavailable")
		default:
			defer release()
		}
	}

	res, err := h.ChatRelay.Chat(ctx, relay.ChatRequest{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		UserID:         strconv.FormatUint(uid, 10),
	})
	if errors.Is(err, relay.ErrEmptyMessage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required", "response": emptyMessageText})
		return
	}
	if res.Failed() {
		c.JSON(http.StatusInternalServerError, gin.H{"response": res.Text})
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": res.Text})
}

// sendKey scopes the send lease to the caller so one user cannot hold
// another user's conversation.
func sendKey(uid uint64, conversationID string) string {
	return strconv.FormatUint(uid, 10) + ":" + conversationID
}
