package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetInbox(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	inbox, err := h.chat.GetInbox(schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch conversations"})
		return
	}
	c.JSON(http.StatusOK, inbox)
}

func (h *Handler) GetChatHistory(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	convoID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	msgs, err := h.chat.GetHistory(schema, convoID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch messages"})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	userID, schema := getUserIDAndSchema(c)
	convoID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Text = SanitizeString(req.Text)
	if !ValidateLength(req.Text, 1, MaxMessageLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text is required"})
		return
	}

	if err := h.chat.SendManual(schema, userID, convoID, req.Text); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

func (h *Handler) CloseConversation(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	convoID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}
	if err := h.chat.Close(schema, convoID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

func (h *Handler) ReleaseConversation(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	convoID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}
	if err := h.chat.Release(schema, convoID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to release conversation"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}
