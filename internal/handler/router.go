package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/gatelog/internal/middleware"
	"github.com/quocanhngo/gatelog/internal/model"
	"github.com/quocanhngo/gatelog/pkg/auth"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth          *AuthHandler
	Entry         *EntryHandler
	Device        *DeviceHandler
	AccessRequest *AccessRequestHandler
	Contact       *ContactHandler
	WS            *WSHandler
}

// RouterConfig carries the cross-cutting pieces of the router
type RouterConfig struct {
	JWT         *auth.JWTManager
	Blacklist   auth.Blacklist
	Cookie      middleware.CookieOptions
	CORSOrigins []string
	DeviceKey   string
	PublicLimit gin.HandlerFunc // nil disables throttling
	SwaggerJSON string          // path of the generated swagger.json; empty disables the UI
	Logger      *zap.Logger
}

// NewRouter wires middleware and routes
func NewRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Logger, "/health"))
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	if cfg.SwaggerJSON != "" {
		// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
		router.StaticFile("/docs/swagger.json", cfg.SwaggerJSON)
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "gatelog-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// cameras authenticate with the device key, not a session
	router.POST("/esp32-cam/upload", middleware.RequireDeviceKey(cfg.DeviceKey), h.Device.Upload)

	app := router.Group("")
	app.Use(middleware.Authenticate(cfg.JWT, cfg.Blacklist, cfg.Cookie, cfg.Logger))

	public := app.Group("")
	if cfg.PublicLimit != nil {
		public.Use(cfg.PublicLimit)
	}
	{
		public.POST("/user/request-otp", h.Auth.RequestOTP)
		public.POST("/user/verify-otp", h.Auth.VerifyOTP)
		public.POST("/access-request/create", h.AccessRequest.Create)
		public.POST("/contact/submit", h.Contact.Submit)
	}

	app.GET("/user/logout", h.Auth.Logout)
	app.GET("/user/me", middleware.RequireAuth(), h.Auth.Me)

	viewers := []model.Role{model.RoleViewer, model.RoleOperator, model.RoleAdmin}
	app.GET("/entries", middleware.RequireRole(viewers...), h.Entry.List)
	app.GET("/ws", middleware.RequireRole(viewers...), h.WS.HandleWebSocket)
	app.POST("/upload", middleware.RequireRole(model.RoleOperator, model.RoleAdmin), h.Entry.Upload)

	admin := app.Group("")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	{
		admin.PUT("/entries/:id", h.Entry.UpdateNumber)
		admin.DELETE("/entries/:id", h.Entry.Delete)

		admin.POST("/user/create", h.Auth.CreateUser)

		admin.GET("/access-request/get-all", h.AccessRequest.List)
		admin.PUT("/access-request/approve/:id", h.AccessRequest.Approve)
		admin.PUT("/access-request/reject/:id", h.AccessRequest.Reject)
	}

	return router
}
