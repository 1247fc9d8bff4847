package http

import (
	"io"
	"net/http"
	"strconv"
	"zapdesk/internal/usecases"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetDashboardStats(c *gin.Context) {
	userID, schema := getUserIDAndSchema(c)
	stats, err := h.dashboard.GetStats(schema, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}
	if client := h.waManager.GetClient(userID); client != nil {
		stats.WhatsAppConnected = client.IsLoggedIn()
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetAIMetrics(c *gin.Context) {
	userID, _ := getUserIDAndSchema(c)
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	history, err := h.dashboard.GetAIMetrics(userID, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch metrics"})
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) GetQuota(c *gin.Context) {
	userID, _ := getUserIDAndSchema(c)
	quota, err := h.dashboard.GetQuota(userID)
	if err != nil || quota == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quota"})
		return
	}
	c.JSON(http.StatusOK, quota)
}

func (h *Handler) GetSettings(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	settings, err := h.dashboard.GetAllSettings(schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) SetSetting(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidSettingKey(req.Key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid setting key"})
		return
	}
	if !ValidateLength(req.Value, 0, MaxSettingValLen) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Setting value too long"})
		return
	}
	if err := h.dashboard.SetSetting(schema, req.Key, SanitizeString(req.Value)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save setting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// TranscribeAudio accepts a multipart audio upload and returns its text.
// Failure statuses follow the transcription error classification.
func (h *Handler) TranscribeAudio(c *gin.Context) {
	userID, _ := getUserIDAndSchema(c)

	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio file is required"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read audio file"})
		return
	}

	text, err := h.transcription.Transcribe(c.Request.Context(), userID, header.Filename, audio)
	if err != nil {
		status, msg := usecases.ClassifyTranscriptionError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}
