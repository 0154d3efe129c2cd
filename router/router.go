package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/controllers"
	"github.com/yeremiapane/cavalli-app/middlewares"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/services"
	"github.com/yeremiapane/cavalli-app/storage"
	"gorm.io/gorm"
)

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	DB             *gorm.DB
	Notifier       *services.Notifier
	Images         storage.ImageStore
	Bill           billing.Options
	Auth           controllers.AuthConfig
	AllowedOrigins []string
	// UploadDir is served under /uploads when images are stored locally.
	UploadDir string
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// onlyImages blocks anything but image files below /uploads.
func onlyImages() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/uploads/") {
			path := strings.ToLower(c.Request.URL.Path)
			allowed := false
			for _, ext := range imageExtensions {
				if strings.HasSuffix(path, ext) {
					allowed = true
					break
				}
			}
			if !allowed {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
		}
		c.Next()
	}
}

func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(deps.AllowedOrigins))
	r.Use(middlewares.NewRateLimiter(120, time.Minute).RateLimit())
	r.Use(onlyImages())

	if deps.UploadDir != "" {
		r.Static("/uploads", deps.UploadDir)
	}

	authCtrl := controllers.NewAuthController(deps.DB, deps.Notifier, deps.Auth)
	sessionCtrl := controllers.NewSessionController(deps.DB, deps.Notifier, deps.Bill)
	orderCtrl := controllers.NewOrderController(deps.DB, deps.Notifier)
	kitchenCtrl := controllers.NewKitchenController(deps.DB)
	categoryCtrl := controllers.NewMenuCategoryController(deps.DB)
	menuCtrl := controllers.NewMenuController(deps.DB)
	adminCtrl := controllers.NewAdminController(deps.DB)
	announcementCtrl := controllers.NewAnnouncementController(deps.DB, deps.Images)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.GET("/categories", categoryCtrl.GetAllCategories)
	r.GET("/menu", middlewares.OptionalAuth(), menuCtrl.GetMenu)
	r.GET("/menu/:item_id", menuCtrl.GetMenuItemByID)
	r.GET("/announcements", announcementCtrl.GetAnnouncements)

	// one code every 20 seconds per IP, bursts of 5
	authLimiter := middlewares.NewStrictRateLimiter(20*time.Second, 5)
	public := r.Group("/auth")
	public.Use(authLimiter.Limit())
	{
		public.POST("/otp/send", authCtrl.SendOTP)
		public.POST("/otp/verify", authCtrl.VerifyOTP)
		public.POST("/login", authCtrl.Login)
		public.POST("/reset-pin/request", authCtrl.RequestPINReset)
		public.POST("/reset-pin", authCtrl.ResetPIN)
	}

	// Kitchen display websocket, token in the query string
	r.GET("/ws/kitchen", middlewares.WebSocketAuthMiddleware(), controllers.KDSHandler)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	auth := r.Group("/")
	auth.Use(middlewares.AuthMiddleware())

	auth.POST("/auth/logout", authCtrl.Logout)
	auth.GET("/auth/me", authCtrl.Me)

	// SESSIONS
	auth.POST("/sessions/start", sessionCtrl.StartSession)
	auth.GET("/sessions/active", sessionCtrl.GetActiveSession)
	auth.GET("/sessions/:id/bill", sessionCtrl.GetSessionBill)
	auth.GET("/sessions/:id/bill.pdf", sessionCtrl.GetSessionBillPDF)
	auth.POST("/bills/request", sessionCtrl.RequestBill)
	auth.POST("/sessions/:id/close", middlewares.RequireRoles(models.KitchenRoles...), sessionCtrl.CloseSession)

	// ORDERS
	auth.POST("/orders", orderCtrl.CreateOrder)
	auth.GET("/orders/mine", orderCtrl.GetMyOrders)
	auth.GET("/orders/:id", orderCtrl.GetOrderByID)

	// KITCHEN
	kitchen := auth.Group("/kitchen")
	kitchen.Use(middlewares.RequireRoles(models.KitchenRoles...))
	{
		kitchen.GET("/orders", kitchenCtrl.GetKitchenOrders)
		kitchen.PATCH("/orders/:id/status", orderCtrl.UpdateOrderStatus)
		kitchen.PATCH("/menu/:item_id/availability", menuCtrl.SetAvailability)
	}

	// ADMIN
	admin := auth.Group("/admin")
	admin.Use(middlewares.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/dashboard/stats", adminCtrl.GetDashboardStats)
		admin.GET("/reports/orders.csv", adminCtrl.ExportOrdersCSV)
		admin.GET("/reports/revenue.png", adminCtrl.RevenueChart)

		admin.PATCH("/orders/:id/discount", orderCtrl.ApplyDiscount)

		admin.POST("/categories", categoryCtrl.CreateCategory)
		admin.PUT("/categories/:cat_id", categoryCtrl.UpdateCategory)
		admin.DELETE("/categories/:cat_id", categoryCtrl.DeleteCategory)

		admin.POST("/menu", menuCtrl.CreateMenuItem)
		admin.PUT("/menu/:item_id", menuCtrl.UpdateMenuItem)
		admin.PATCH("/menu/:item_id/availability", menuCtrl.SetAvailability)
		admin.DELETE("/menu/:item_id", menuCtrl.DeleteMenuItem)

		admin.POST("/announcements", announcementCtrl.CreateAnnouncement)
		admin.DELETE("/announcements/:id", announcementCtrl.DeleteAnnouncement)
		admin.POST("/uploads", announcementCtrl.UploadImage)
	}

	// USERS (admin and kitchen manager)
	users := auth.Group("/admin/users")
	users.Use(middlewares.RequireRoles(models.ManagerRoles...))
	{
		users.GET("", adminCtrl.GetUsers)
		users.POST("", adminCtrl.CreateUser)
		users.PUT("/:id", adminCtrl.UpdateUser)
		users.DELETE("/:id", adminCtrl.DeleteUser)
	}

	return r
}
