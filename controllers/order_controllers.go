package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/kds"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/services"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OrderController struct {
	DB       *gorm.DB
	Notifier *services.Notifier
}

func NewOrderController(db *gorm.DB, notifier *services.Notifier) *OrderController {
	return &OrderController{DB: db, Notifier: notifier}
}

type orderItemRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	UserID       string             `json:"user_id"`
	SessionID    string             `json:"session_id"`
	Items        []orderItemRequest `json:"items"`
	TableName    string             `json:"table_name"`
	NumGuests    int                `json:"num_guests"`
	LocationType string             `json:"location_type"`
	Notes        string             `json:"notes"`
}

// authorizeOrder -> without a session only the token user may order for
// themselves. With a session it must be active and belong to user_id, unless
// floor staff key the order in. Returns 0 when allowed, else the status.
func (oc *OrderController) authorizeOrder(c *gin.Context, req createOrderRequest) (int, error) {
	if req.SessionID == "" {
		if caller := currentUserID(c); caller != "" && caller == req.UserID {
			return 0, nil
		}
		return http.StatusForbidden, nil
	}

	var session models.GuestSession
	err := oc.DB.Select("id", "user_id", "status").First(&session, "id = ?", req.SessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, nil
	}
	if err != nil {
		return http.StatusInternalServerError, err
	}
	if !session.IsActive() {
		return http.StatusNotFound, nil
	}
	if session.UserID != nil && *session.UserID == req.UserID {
		return 0, nil
	}
	if isKitchenStaff(c) {
		return 0, nil
	}
	return http.StatusForbidden, nil
}

// CreateOrder -> prices are taken from the menu, never from the client
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidPayload)
		return
	}
	req.TableName = strings.TrimSpace(req.TableName)
	if req.UserID == "" || len(req.Items) == 0 || req.TableName == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("missing required fields: user_id, items, table_name"))
		return
	}

	status, err := oc.authorizeOrder(c, req)
	if err != nil {
		utils.RespondError(c, status, err)
		return
	}
	switch status {
	case 0:
	case http.StatusNotFound:
		utils.RespondError(c, http.StatusNotFound, ErrSessionClosed)
		return
	default:
		utils.InfoLogger.WithFields(logrus.Fields{
			"user_id":    req.UserID,
			"session_id": req.SessionID,
			"caller":     currentUserID(c),
		}).Warn("Order creation blocked: user mismatch or session of another guest")
		utils.RespondError(c, status, errors.New("unauthorized: user mismatch or invalid session"))
		return
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("quantity for item %s must be positive", item.ItemID))
			return
		}
		ids = append(ids, item.ItemID)
	}

	var menuItems []models.MenuItem
	if err := oc.DB.Where("id IN ?", ids).Find(&menuItems).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, errors.New("failed to validate menu items"))
		return
	}
	catalogue := make(map[string]models.MenuItem, len(menuItems))
	for _, m := range menuItems {
		catalogue[m.ID] = m
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		menuItem, found := catalogue[item.ItemID]
		if !found {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("item %s not found", item.ItemID))
			return
		}
		if !menuItem.Available {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("item %s is currently unavailable", item.ItemID))
			return
		}

		orderItem := models.OrderItem{
			MenuItemID: menuItem.ID,
			ItemName:   menuItem.Name,
			Quantity:   item.Quantity,
			Price:      menuItem.Price,
		}
		total = total.Add(orderItem.Subtotal())
		items = append(items, orderItem)
	}

	var user models.User
	if err := oc.DB.First(&user, "id = ?", req.UserID).Error; err != nil {
		respondDBError(c, err, "user not found")
		return
	}

	numGuests := req.NumGuests
	if numGuests < 1 {
		numGuests = 1
	}
	location := req.LocationType
	if location == "" {
		location = "dine_in"
	}

	order := models.Order{
		UserID:       req.UserID,
		TableName:    req.TableName,
		LocationType: location,
		NumGuests:    numGuests,
		Total:        total,
		Status:       models.OrderPending,
		Notes:        req.Notes,
		Items:        items,
	}
	if req.SessionID != "" {
		sessionID := req.SessionID
		order.SessionID = &sessionID
	}
	if user.Role == models.RoleGuest {
		info := datatypes.NewJSONType(models.GuestInfo{Name: user.Name, Phone: user.Phone, Email: user.EmailOrEmpty()})
		order.GuestInfo = &info
	}

	// order and items are written together by the association save
	if err := oc.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&order).Error
	}); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, fmt.Errorf("failed to create order: %w", err))
		return
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"table":    order.TableName,
		"total":    order.Total.StringFixed(2),
	}).Info("Order created")

	kds.BroadcastOrderCreated(order)

	if email := user.EmailOrEmpty(); email != "" && oc.Notifier != nil {
		bill := billing.Consolidate(billing.Session{Orders: []billing.Order{toBillOrder(order)}})
		go func(orderID string, createdAt time.Time) {
			if err := oc.Notifier.SendOrderConfirmation(context.Background(), email, orderID, bill, createdAt); err != nil {
				utils.ErrorLogger.WithError(err).WithField("order_id", orderID).Warn("Order confirmation email not sent")
			}
		}(order.ID, order.CreatedAt)
	}

	utils.RespondJSON(c, http.StatusCreated, "Order created successfully", gin.H{
		"order_id": order.ID,
		"total":    order.Total,
		"order":    order,
	})
}

// GetMyOrders -> orders of the caller, newest first
func (oc *OrderController) GetMyOrders(c *gin.Context) {
	var orders []models.Order
	if err := oc.DB.Preload("Items").
		Where("user_id = ?", currentUserID(c)).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

// GetOrderByID -> order detail for its owner or staff
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	var order models.Order
	if err := oc.DB.Preload("Items").First(&order, "id = ?", c.Param("id")).Error; err != nil {
		respondDBError(c, err, "order not found")
		return
	}

	if order.UserID != currentUserID(c) && !isKitchenStaff(c) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// UpdateOrderStatus -> moves an order through the kitchen workflow
func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order models.Order
	if err := oc.DB.First(&order, "id = ?", c.Param("id")).Error; err != nil {
		respondDBError(c, err, "order not found")
		return
	}

	if !models.CanTransition(order.Status, req.Status) {
		utils.RespondError(c, http.StatusConflict, fmt.Errorf("cannot change order from %s to %s", order.Status, req.Status))
		return
	}

	if err := oc.DB.Model(&order).Update("status", req.Status).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	order.Status = req.Status

	kds.BroadcastOrderStatus(order)
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

// ApplyDiscount -> sets the discount of an order; it may exceed the total
func (oc *OrderController) ApplyDiscount(c *gin.Context) {
	var req struct {
		DiscountAmount *decimal.Decimal `json:"discount_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DiscountAmount == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("discount_amount is required"))
		return
	}
	if req.DiscountAmount.IsNegative() {
		utils.RespondError(c, http.StatusBadRequest, errors.New("discount_amount must not be negative"))
		return
	}

	var order models.Order
	if err := oc.DB.First(&order, "id = ?", c.Param("id")).Error; err != nil {
		respondDBError(c, err, "order not found")
		return
	}

	if err := oc.DB.Model(&order).Update("discount_amount", *req.DiscountAmount).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	order.DiscountAmount = *req.DiscountAmount

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"discount": order.DiscountAmount.StringFixed(2),
		"by":       currentUserID(c),
	}).Info("Discount applied")
	utils.RespondJSON(c, http.StatusOK, "Discount applied", order)
}
