package http

import (
	"errors"
	"net/http"
	"zapdesk/internal/entities"
	"zapdesk/internal/usecases"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetWorkflows(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	list, err := h.workflows.List(schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch workflows"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetWorkflow(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	wf, err := h.workflows.Get(schema, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch workflow"})
		return
	}
	if wf == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Workflow not found"})
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (h *Handler) CreateWorkflow(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var wf entities.Workflow
	if err := c.ShouldBindJSON(&wf); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidateLength(wf.Name, 1, MaxNameLength) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Workflow name is required"})
		return
	}
	if err := h.workflows.Create(schema, &wf); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wf)
}

func (h *Handler) UpdateWorkflow(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var wf entities.Workflow
	if err := c.ShouldBindJSON(&wf); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	wf.ID = c.Param("id")
	if err := h.workflows.Update(schema, &wf); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (h *Handler) SetWorkflowActive(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.workflows.SetActive(schema, c.Param("id"), req.Active); err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "active": req.Active})
}

func (h *Handler) DeleteWorkflow(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	if err := h.workflows.Delete(schema, c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete workflow"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func writeWorkflowError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecases.ErrTriggerTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, usecases.ErrInvalidGraph):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save workflow"})
	}
}
