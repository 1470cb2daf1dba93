package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/n8n-chat/internal/common"
	"github.com/suPer8Hu/n8n-chat/internal/log"
)

type channelMessageReq struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

// ChannelMessage stores a message that reached a conversation through a
// secondary channel (e.g. Telegram via the n8n workflow).
func (h *Handler) ChannelMessage(c *gin.Context) {
	var req channelMessageReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ConversationID == "" {
		common.Fail(c, http.StatusBadRequest, 10001, "conversationId and content required")
		return
	}

	msg, err := h.ChatSvc.InsertChannelMessage(c.Request.Context(), req.ConversationID, req.Content)
	if err != nil {
		h.storeError(c, err, "failed to store channel message")
		return
	}

	l := log.Ctx(c.Request.Context())
	l.Info().Str(log.FieldConversationID, msg.ConversationID).Uint64("message_id", msg.ID).Msg("channel message stored")
	common.Created(c, gin.H{"message": msg})
}
