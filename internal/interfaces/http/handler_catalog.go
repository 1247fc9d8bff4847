package http

import (
	"net/http"
	"strconv"
	"zapdesk/internal/entities"

	"github.com/gin-gonic/gin"
)

// --- products ---

func (h *Handler) GetProducts(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	list, err := h.orders.ListProducts(schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var p entities.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.orders.CreateProduct(schema, &p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	var p entities.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	p.ID = id
	if err := h.orders.UpdateProduct(schema, &p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}
	if err := h.orders.DeleteProduct(schema, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// --- orders ---

func (h *Handler) GetOrders(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	list, err := h.orders.ListOrders(schema, c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var o entities.Order
	if err := c.ShouldBindJSON(&o); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidPhone(o.ContactPhone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact phone"})
		return
	}
	if err := h.orders.CreateOrder(schema, &o); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.orders.ChangeOrderStatus(schema, id, req.Status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// --- pix keys ---

func (h *Handler) GetPixKeys(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	list, err := h.orders.ListPixKeys(schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pix keys"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreatePixKey(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var k entities.PixKey
	if err := c.ShouldBindJSON(&k); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.orders.AddPixKey(schema, &k); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, k)
}

func (h *Handler) DeletePixKey(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pix key ID"})
		return
	}
	if err := h.orders.DeletePixKey(schema, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete pix key"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
