package http

import (
	"net/http"
	"time"
	"zapdesk/internal/infrastructure"
	"zapdesk/internal/repository"
	"zapdesk/internal/usecases"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// Handler groups the tenant-facing API endpoints.
type Handler struct {
	auth          *usecases.AuthUsecase
	workflows     *usecases.WorkflowUsecase
	chat          *usecases.ChatUsecase
	scheduling    *usecases.SchedulingUsecase
	orders        *usecases.OrderUsecase
	dashboard     *usecases.DashboardUsecase
	transcription *usecases.TranscriptionUsecase
	clientRepo    *repository.ClientRepository
	userRepo      *repository.UserRepository
	waManager     *infrastructure.WhatsAppManager
	engine        *usecases.Engine
	log           *zap.Logger
}

type HandlerDeps struct {
	Auth          *usecases.AuthUsecase
	Workflows     *usecases.WorkflowUsecase
	Chat          *usecases.ChatUsecase
	Scheduling    *usecases.SchedulingUsecase
	Orders        *usecases.OrderUsecase
	Dashboard     *usecases.DashboardUsecase
	Transcription *usecases.TranscriptionUsecase
	ClientRepo    *repository.ClientRepository
	UserRepo      *repository.UserRepository
	WAManager     *infrastructure.WhatsAppManager
	Engine        *usecases.Engine
	Log           *zap.Logger
}

func NewHandler(d HandlerDeps) *Handler {
	return &Handler{
		auth:          d.Auth,
		workflows:     d.Workflows,
		chat:          d.Chat,
		scheduling:    d.Scheduling,
		orders:        d.Orders,
		dashboard:     d.Dashboard,
		transcription: d.Transcription,
		clientRepo:    d.ClientRepo,
		userRepo:      d.UserRepo,
		waManager:     d.WAManager,
		engine:        d.Engine,
		log:           d.Log,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware, allowedOrigins []string) {
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(30 << 20)) // audio uploads go through here

	corsCfg := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	corsCfg.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsCfg))

	// Public auth routes
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/register", h.Register)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(10, 20))
	{
		api.GET("/dashboard/stats", h.GetDashboardStats)
		api.GET("/ai-metrics", h.GetAIMetrics)
		api.GET("/quota", h.GetQuota)
		api.GET("/profile", h.GetProfile)

		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.SetSetting)

		api.GET("/clients", h.GetClients)
		api.POST("/clients", h.CreateClient)
		api.PUT("/clients/:id", h.UpdateClient)
		api.DELETE("/clients/:id", h.DeleteClient)

		api.GET("/workflows", h.GetWorkflows)
		api.GET("/workflows/:id", h.GetWorkflow)
		api.POST("/workflows", h.CreateWorkflow)
		api.PUT("/workflows/:id", h.UpdateWorkflow)
		api.PUT("/workflows/:id/active", h.SetWorkflowActive)
		api.DELETE("/workflows/:id", h.DeleteWorkflow)

		api.GET("/chat/conversations", h.GetInbox)
		api.GET("/chat/conversations/:id/messages", h.GetChatHistory)
		api.POST("/chat/conversations/:id/messages", h.SendChatMessage)
		api.POST("/chat/conversations/:id/close", h.CloseConversation)
		api.POST("/chat/conversations/:id/release", h.ReleaseConversation)

		api.GET("/services", h.GetServices)
		api.POST("/services", h.CreateService)
		api.PUT("/services/:id", h.UpdateService)
		api.DELETE("/services/:id", h.DeleteService)

		api.GET("/working-hours", h.GetWorkingHours)
		api.PUT("/working-hours", h.SetWorkingHours)

		api.GET("/appointments", h.GetAppointments)
		api.GET("/appointments/slots", h.GetAvailableSlots)
		api.POST("/appointments", h.CreateAppointment)
		api.PUT("/appointments/:id/status", h.UpdateAppointmentStatus)

		api.GET("/products", h.GetProducts)
		api.POST("/products", h.CreateProduct)
		api.PUT("/products/:id", h.UpdateProduct)
		api.DELETE("/products/:id", h.DeleteProduct)

		api.GET("/orders", h.GetOrders)
		api.POST("/orders", h.CreateOrder)
		api.PUT("/orders/:id/status", h.UpdateOrderStatus)

		api.GET("/pix-keys", h.GetPixKeys)
		api.POST("/pix-keys", h.CreatePixKey)
		api.DELETE("/pix-keys/:id", h.DeletePixKey)

		api.POST("/transcribe", h.TranscribeAudio)

		api.GET("/whatsapp/qr", h.GetUserQRCode)
		api.GET("/whatsapp/status", h.GetUserWhatsAppStatus)
		api.POST("/whatsapp/connect", h.ConnectUserWhatsApp)
		api.POST("/whatsapp/logout", h.LogoutUserWhatsApp)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminRequired())
	{
		adminHandler := NewAdminHandler(h.userRepo, h.waManager)
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/users", adminHandler.GetAllUsers)
		admin.PUT("/users/:id/status", adminHandler.UpdateUserStatus)
		admin.PUT("/users/:id/whatsapp", adminHandler.UpdateWAEnabled)
		admin.PUT("/users/:id/limits", adminHandler.UpdateUserLimits)
		admin.POST("/users/:id/disconnect-wa", adminHandler.DisconnectUserWA)
	}
}

// getUserIDAndSchema extracts user_id and schema_name from JWT context
func getUserIDAndSchema(c *gin.Context) (int, string) {
	userIDFloat, _ := c.Get("user_id")
	schemaVal, _ := c.Get("schema_name")

	userID := 0
	if uid, ok := userIDFloat.(float64); ok {
		userID = int(uid)
	}
	schema, _ := schemaVal.(string)
	return userID, schema
}

// ========================================
// Auth
// ========================================

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !ValidSlug(req.Username) || len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid username or password (min 6 chars)"})
		return
	}
	if err := h.auth.Register(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

func (h *Handler) GetProfile(c *gin.Context) {
	userID, _ := getUserIDAndSchema(c)
	user, err := h.userRepo.GetByID(userID)
	if err != nil || user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":            user.ID,
		"username":      user.Username,
		"role":          user.Role,
		"wa_enabled":    user.WAEnabled,
		"daily_limit":   user.DailyLimit,
		"monthly_limit": user.MonthlyLimit,
		"created_at":    user.CreatedAt,
	})
}

// ========================================
// Per-User WhatsApp Instance
// ========================================

// ConnectUserWhatsApp creates and connects the WhatsApp client for the user
func (h *Handler) ConnectUserWhatsApp(c *gin.Context) {
	userID, schema := getUserIDAndSchema(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user"})
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user"})
		return
	}
	if !user.WAEnabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "WhatsApp not enabled for this account"})
		return
	}

	client, err := h.waManager.ConnectClient(userID, schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Waits persisted before a restart resume once the instance is back.
	h.engine.RestoreWaits(schema, userID)

	phone, name := client.GetUserInfo()
	c.JSON(http.StatusOK, gin.H{
		"status":    "connecting",
		"connected": client.IsLoggedIn(),
		"phone":     phone,
		"name":      name,
	})
}

// GetUserQRCode returns the pairing QR code PNG for the user's instance
func (h *Handler) GetUserQRCode(c *gin.Context) {
	userID, schema := getUserIDAndSchema(c)
	if userID == 0 {
		c.String(http.StatusUnauthorized, "Invalid user")
		return
	}

	client, err := h.waManager.GetOrCreateClient(userID, schema)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to create client: "+err.Error())
		return
	}

	if client.Client.Store.ID == nil && !client.Client.IsConnected() {
		if err := client.Connect(); err != nil {
			c.String(http.StatusInternalServerError, "Failed to connect: "+err.Error())
			return
		}
	}

	qrCodeString := client.GetQR()
	if qrCodeString == "" {
		if client.IsLoggedIn() {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}

	png, err := qrcode.Encode(qrCodeString, qrcode.Medium, 256)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// GetUserWhatsAppStatus returns connection status for the user's instance
func (h *Handler) GetUserWhatsAppStatus(c *gin.Context) {
	userID, schema := getUserIDAndSchema(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user"})
		return
	}

	client := h.waManager.GetClient(userID)
	if client == nil {
		client, _ = h.waManager.GetOrCreateClient(userID, schema)
	}
	if client == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "initialized": false})
		return
	}

	phone, name := client.GetUserInfo()
	c.JSON(http.StatusOK, gin.H{
		"connected":   client.IsLoggedIn(),
		"initialized": true,
		"phone":       phone,
		"name":        name,
		"hasQR":       client.GetQR() != "",
	})
}

// LogoutUserWhatsApp logs out the user's WhatsApp session
func (h *Handler) LogoutUserWhatsApp(c *gin.Context) {
	userID, _ := getUserIDAndSchema(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user"})
		return
	}

	if err := h.waManager.LogoutClient(userID); err != nil {
		// Already logged out is fine from the user's point of view.
		h.log.Warn("whatsapp logout", zap.Int("user", userID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}
