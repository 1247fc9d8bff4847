package http

import (
	"net/http"
	"strconv"
	"zapdesk/internal/entities"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetClients(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	list, err := h.clientRepo.GetAll(schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch clients"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateClient(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var client entities.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidPhone(client.Phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid phone number"})
		return
	}
	client.Name = SanitizeString(client.Name)
	if err := h.clientRepo.Create(schema, &client); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Client already exists"})
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *Handler) UpdateClient(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client ID"})
		return
	}
	var client entities.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	client.ID = id
	client.Name = SanitizeString(client.Name)
	if err := h.clientRepo.Update(schema, &client); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update client"})
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *Handler) DeleteClient(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid client ID"})
		return
	}
	if err := h.clientRepo.Delete(schema, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete client"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
