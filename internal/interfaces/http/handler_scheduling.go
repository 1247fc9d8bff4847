package http

import (
	"net/http"
	"strconv"
	"time"
	"zapdesk/internal/entities"

	"github.com/gin-gonic/gin"
)

// --- services ---

func (h *Handler) GetServices(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	list, err := h.scheduling.ListServices(schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch services"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateService(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var svc entities.Service
	if err := c.ShouldBindJSON(&svc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.scheduling.CreateService(schema, &svc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, svc)
}

func (h *Handler) UpdateService(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service ID"})
		return
	}
	var svc entities.Service
	if err := c.ShouldBindJSON(&svc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	svc.ID = id
	if err := h.scheduling.UpdateService(schema, &svc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, svc)
}

func (h *Handler) DeleteService(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service ID"})
		return
	}
	if err := h.scheduling.DeleteService(schema, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete service"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// --- working hours ---

func (h *Handler) GetWorkingHours(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	hours, err := h.scheduling.GetWorkingHours(schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch working hours"})
		return
	}
	c.JSON(http.StatusOK, hours)
}

func (h *Handler) SetWorkingHours(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var hours []entities.WorkingHours
	if err := c.ShouldBindJSON(&hours); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.scheduling.SetWorkingHours(schema, hours); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// --- appointments ---

func (h *Handler) GetAppointments(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)

	from, err := parseDateQuery(c, "from", time.Now().AddDate(0, 0, -7))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date"})
		return
	}
	to, err := parseDateQuery(c, "to", time.Now().AddDate(0, 1, 0))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date"})
		return
	}

	list, err := h.scheduling.Agenda(schema, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch appointments"})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetAvailableSlots(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)

	serviceID, err := strconv.Atoi(c.Query("service_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service_id is required"})
		return
	}
	day, err := time.ParseInLocation("2006-01-02", c.Query("date"), time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date is required (YYYY-MM-DD)"})
		return
	}

	slots, err := h.scheduling.AvailableSlots(schema, serviceID, day)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	var a entities.Appointment
	if err := c.ShouldBindJSON(&a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if a.ContactPhone != "" && !ValidPhone(a.ContactPhone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid contact phone"})
		return
	}
	if err := h.scheduling.Book(schema, &a); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAppointmentStatus(c *gin.Context) {
	_, schema := getUserIDAndSchema(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appointment ID"})
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.scheduling.ChangeStatus(schema, id, req.Status); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func parseDateQuery(c *gin.Context, key string, fallback time.Time) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}
