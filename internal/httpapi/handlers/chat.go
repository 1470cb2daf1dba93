package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/n8n-chat/internal/chat"
	"github.com/suPer8Hu/n8n-chat/internal/common"
	"github.com/suPer8Hu/n8n-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/n8n-chat/internal/log"
)

const HeaderIdempotencyKey = "Idempotency-Key"

func (h *Handler) ListConversations(c *gin.Context) {
	uid, okk := middleware.UserID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	convs, err := h.ChatSvc.ListConversations(c.Request.Context(), uid)
	if err != nil {
		h.storeError(c, err, "failed to list conversations")
		return
	}
	if convs == nil {
		convs = []chat.Conversation{}
	}
	common.OK(c, gin.H{"conversations": convs})
}

type createConversationReq struct {
	Title string `json:"title"`
}

func (h *Handler) CreateConversation(c *gin.Context) {
	uid, okk := middleware.UserID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createConversationReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	if len(key) > 128 {
		common.Fail(c, http.StatusBadRequest, 10010, "idempotency key too long")
		return
	}

	conv, created, err := h.ChatSvc.CreateConversation(c.Request.Context(), uid, req.Title, key)
	if err != nil {
		h.storeError(c, err, "failed to create conversation")
		return
	}
	if created {
		common.Created(c, gin.H{"conversation": conv})
		return
	}
	common.OK(c, gin.H{"conversation": conv})
}

type updateConversationReq struct {
	Title *string `json:"title"`
	Touch bool    `json:"touch"`
}

func (h *Handler) UpdateConversation(c *gin.Context) {
	uid, okk := middleware.UserID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req updateConversationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Title == nil && !req.Touch {
		common.Fail(c, http.StatusBadRequest, 10011, "nothing to update")
		return
	}

	conv, err := h.ChatSvc.UpdateConversation(c.Request.Context(), uid, c.Param("id"), chat.ConversationPatch{
		Title: req.Title,
		Touch: req.Touch,
	})
	if err != nil {
		h.storeError(c, err, "failed to update conversation")
		return
	}
	common.OK(c, gin.H{"conversation": conv})
}

func (h *Handler) DeleteConversation(c *gin.Context) {
	uid, okk := middleware.UserID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	id := c.Param("id")
	if err := h.ChatSvc.DeleteConversation(c.Request.Context(), uid, id); err != nil {
		h.storeError(c, err, "failed to delete conversation")
		return
	}
	common.OK(c, gin.H{"id": id})
}

func (h *Handler) ListMessages(c *gin.Context) {
	uid, okk := middleware.UserID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.storeError(c, err, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	common.OK(c, gin.H{"messages": msgs})
}

type insertMessageReq struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *Handler) InsertMessage(c *gin.Context) {
	uid, okk := middleware.UserID(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req insertMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	msg, err := h.ChatSvc.InsertMessage(c.Request.Context(), uid, c.Param("id"), chat.Role(req.Role), req.Content)
	if err != nil {
		h.storeError(c, err, "failed to insert message")
		return
	}
	common.Created(c, gin.H{"message": msg})
}

// storeError maps session store errors onto the envelope.
func (h *Handler) storeError(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		common.Fail(c, http.StatusNotFound, 40402, "conversation not found")
	case errors.Is(err, chat.ErrInvalidMessage):
		common.Fail(c, http.StatusBadRequest, 10012, "role and non-empty content required")
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(msg)
		common.Fail(c, http.StatusInternalServerError, 50001, msg)
	}
}
