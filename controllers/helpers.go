package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/middlewares"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

var (
	ErrNoPermission   = &CustomError{"You do not have permission"}
	ErrSessionClosed  = &CustomError{"Active session not found"}
	ErrInvalidPayload = &CustomError{"Invalid request payload"}
)

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

func currentUserID(c *gin.Context) string {
	return c.GetString(middlewares.CtxUserID)
}

func currentRole(c *gin.Context) string {
	return c.GetString(middlewares.CtxRole)
}

func hasRole(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func isKitchenStaff(c *gin.Context) bool {
	return hasRole(currentRole(c), models.KitchenRoles)
}

// respondDBError maps a lookup error to 404 or 500.
func respondDBError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, http.StatusNotFound, errors.New(notFound))
		return
	}
	utils.RespondError(c, http.StatusInternalServerError, err)
}

// toBillOrder converts a stored order to its billing snapshot.
func toBillOrder(o models.Order) billing.Order {
	total := o.Total
	discount := o.DiscountAmount
	items := make([]billing.LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		li := billing.LineItem{Quantity: it.Quantity, Price: it.Price}
		if it.ItemName != "" {
			name := it.ItemName
			li.Name = &name
		}
		items = append(items, li)
	}
	return billing.Order{
		ID:        o.ID,
		CreatedAt: o.CreatedAt,
		Total:     &total,
		Discount:  &discount,
		Items:     items,
	}
}

// toBillSession converts a session with preloaded orders and items.
// Cancelled orders are not billed.
func toBillSession(s models.GuestSession) billing.Session {
	orders := make([]billing.Order, 0, len(s.Orders))
	for _, o := range s.Orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		orders = append(orders, toBillOrder(o))
	}
	return billing.Session{
		ID:         s.ID,
		GuestName:  s.GuestName,
		GuestPhone: s.GuestPhone,
		TableName:  s.TableName,
		NumGuests:  s.NumGuests,
		StartedAt:  s.StartedAt,
		Orders:     orders,
	}
}

// preloadSessionOrders loads orders oldest first with their items.
func preloadSessionOrders(db *gorm.DB) *gorm.DB {
	return db.Preload("Orders", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at ASC")
	}).Preload("Orders.Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	})
}
