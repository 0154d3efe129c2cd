package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yeremiapane/cavalli-app/kds"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

var upgrader = websocket.Upgrader{
	// origins are enforced by the CORS layer and the token check
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type KitchenController struct {
	DB *gorm.DB
}

func NewKitchenController(db *gorm.DB) *KitchenController {
	return &KitchenController{DB: db}
}

// GetKitchenOrders -> open orders oldest first plus tables waiting for a bill
func (kc *KitchenController) GetKitchenOrders(c *gin.Context) {
	var orders []models.Order
	if err := kc.DB.Preload("Items").
		Where("status IN ?", models.OpenKitchenStatuses).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var billRequests []models.GuestSession
	if err := kc.DB.
		Where("status = ? AND bill_requested = ?", models.SessionActive, true).
		Order("bill_requested_at ASC").
		Find(&billRequests).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Kitchen queue", gin.H{
		"orders":        orders,
		"bill_requests": billRequests,
	})
}

// KDSHandler -> websocket endpoint of the kitchen display
func KDSHandler(c *gin.Context) {
	role := currentRole(c)
	if role == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !hasRole(role, models.KitchenRoles) {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("Websocket upgrade failed: %v", err)
		return
	}

	kds.RegisterClient(ws, role)

	// displays only listen, reading detects the disconnect
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	kds.UnregisterClient(ws)
}
