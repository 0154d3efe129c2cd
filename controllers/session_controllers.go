package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/kds"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/services"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

type SessionController struct {
	DB       *gorm.DB
	Notifier *services.Notifier
	Bill     billing.Options
}

func NewSessionController(db *gorm.DB, notifier *services.Notifier, bill billing.Options) *SessionController {
	return &SessionController{DB: db, Notifier: notifier, Bill: bill}
}

// canAccess reports whether the caller owns the session or works the floor.
func canAccess(c *gin.Context, session models.GuestSession) bool {
	if isKitchenStaff(c) {
		return true
	}
	return session.UserID != nil && *session.UserID == currentUserID(c)
}

// StartSession -> opens a dining session or returns the guest's active one
func (sc *SessionController) StartSession(c *gin.Context) {
	var req struct {
		GuestName  string `json:"guest_name"`
		GuestPhone string `json:"guest_phone"`
		GuestEmail string `json:"guest_email"`
		TableName  string `json:"table_name"`
		NumGuests  int    `json:"num_guests"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidPayload)
		return
	}

	phone := utils.SanitizePhone(req.GuestPhone)
	name := strings.TrimSpace(req.GuestName)
	table := strings.TrimSpace(req.TableName)
	if name == "" || phone == "" || table == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("missing required fields: guest_name, guest_phone, table_name"))
		return
	}
	if len(phone) != 10 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("guest_phone must be a 10 digit number"))
		return
	}
	numGuests := req.NumGuests
	if numGuests < 1 {
		numGuests = 1
	}
	userID := currentUserID(c)

	var session models.GuestSession
	created := false
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		found, err := sc.reuseActiveSession(tx, phone, userID, &session)
		if err != nil || found {
			return err
		}

		session = models.GuestSession{
			GuestName:  name,
			GuestPhone: phone,
			GuestEmail: utils.NormalizeEmail(req.GuestEmail),
			TableName:  table,
			NumGuests:  numGuests,
			Status:     models.SessionActive,
			StartedAt:  time.Now(),
		}
		if userID != "" {
			session.UserID = &userID
		}
		created = true
		return tx.Create(&session).Error
	})
	if err != nil && created {
		// a concurrent start won the active_phone unique index
		created = false
		found, lookupErr := sc.reuseActiveSession(sc.DB, phone, userID, &session)
		if lookupErr == nil && found {
			err = nil
		}
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, fmt.Errorf("failed to create session: %w", err))
		return
	}

	if !created {
		utils.RespondJSON(c, http.StatusOK, "Active session already exists", session)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Session created successfully", session)
}

// reuseActiveSession loads the active session of phone into session and
// attaches userID when it has no owner yet.
func (sc *SessionController) reuseActiveSession(tx *gorm.DB, phone, userID string, session *models.GuestSession) (bool, error) {
	*session = models.GuestSession{}
	err := tx.Where("guest_phone = ? AND status = ?", phone, models.SessionActive).First(session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if session.UserID == nil && userID != "" {
		session.UserID = &userID
		if err := tx.Model(session).Update("user_id", userID).Error; err != nil {
			return true, err
		}
	}
	return true, nil
}

// GetActiveSession -> the caller's open session with its orders
func (sc *SessionController) GetActiveSession(c *gin.Context) {
	var session models.GuestSession
	err := preloadSessionOrders(sc.DB).
		Where("user_id = ? AND status = ?", currentUserID(c), models.SessionActive).
		First(&session).Error
	if err != nil {
		respondDBError(c, err, "no active session")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active session", session)
}

func (sc *SessionController) loadSession(c *gin.Context, id string) (models.GuestSession, bool) {
	var session models.GuestSession
	if err := preloadSessionOrders(sc.DB).First(&session, "id = ?", id).Error; err != nil {
		respondDBError(c, err, "session not found")
		return session, false
	}
	if !canAccess(c, session) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return session, false
	}
	return session, true
}

func (sc *SessionController) billOptions(session models.GuestSession) billing.Options {
	opts := sc.Bill
	if session.EndedAt != nil {
		opts.EndedAt = *session.EndedAt
	}
	return opts
}

// GetSessionBill -> consolidated bill and printable receipt text
func (sc *SessionController) GetSessionBill(c *gin.Context) {
	session, ok := sc.loadSession(c, c.Param("id"))
	if !ok {
		return
	}

	snapshot := toBillSession(session)
	bill := billing.Consolidate(snapshot)
	opts := sc.billOptions(session)

	data := gin.H{
		"session": gin.H{
			"id":         session.ID,
			"guest_name": session.GuestName,
			"table_name": session.TableName,
			"num_guests": session.NumGuests,
			"status":     session.Status,
			"started_at": session.StartedAt,
		},
		"bill":    bill,
		"receipt": billing.RenderReceipt(snapshot, bill, opts),
	}
	if link, ok := billing.PaymentLink(opts.Payment, bill.FinalTotal); ok {
		data["payment_link"] = link
	}

	utils.RespondJSON(c, http.StatusOK, "Session bill", data)
}

// GetSessionBillPDF -> printable PDF bill
func (sc *SessionController) GetSessionBillPDF(c *gin.Context) {
	session, ok := sc.loadSession(c, c.Param("id"))
	if !ok {
		return
	}

	snapshot := toBillSession(session)
	var buf bytes.Buffer
	if err := billing.RenderPDF(&buf, snapshot, billing.Consolidate(snapshot), sc.billOptions(session)); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="bill_%s.pdf"`, shortRef(session.ID)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// RequestBill -> flags the session for the waiter, the session stays open
func (sc *SessionController) RequestBill(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}

	var session models.GuestSession
	err := preloadSessionOrders(sc.DB).
		Where("id = ? AND status = ?", req.SessionID, models.SessionActive).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusNotFound, ErrSessionClosed)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if !canAccess(c, session) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	bill := billing.Consolidate(toBillSession(session))
	now := time.Now()
	total := bill.FinalTotal

	if err := sc.DB.Model(&session).Updates(map[string]interface{}{
		"bill_requested":    true,
		"bill_requested_at": now,
		"total_amount":      total,
	}).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	session.BillRequested = true
	session.BillRequestedAt = &now
	session.TotalAmount = &total

	kds.BroadcastBillRequested(session)

	utils.RespondJSON(c, http.StatusOK, "Bill request sent to kitchen. A waiter will bring your bill shortly.", gin.H{
		"id":           session.ID,
		"guest_name":   session.GuestName,
		"table_name":   session.TableName,
		"total_amount": total,
		"order_count":  bill.OrderCount,
	})
}

// CloseSession -> ends the visit and sends the bill to the guest
func (sc *SessionController) CloseSession(c *gin.Context) {
	var session models.GuestSession
	if err := preloadSessionOrders(sc.DB).First(&session, "id = ?", c.Param("id")).Error; err != nil {
		respondDBError(c, err, "session not found")
		return
	}
	if !session.IsActive() {
		utils.RespondError(c, http.StatusConflict, errors.New("session is already closed"))
		return
	}

	snapshot := toBillSession(session)
	bill := billing.Consolidate(snapshot)
	now := time.Now()
	total := bill.FinalTotal

	if err := sc.DB.Model(&session).Updates(map[string]interface{}{
		"status":       models.SessionClosed,
		"active_phone": nil,
		"ended_at":     now,
		"total_amount": total,
	}).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	session.Status = models.SessionClosed
	session.ActivePhone = nil
	session.EndedAt = &now
	session.TotalAmount = &total

	email := session.GuestEmail
	if email == "" && session.UserID != nil {
		var user models.User
		if err := sc.DB.Select("email").First(&user, "id = ?", *session.UserID).Error; err == nil {
			email = user.EmailOrEmpty()
		}
	}

	if sc.Notifier != nil {
		go sc.Notifier.DeliverBill(context.Background(), snapshot, bill, email, now)
	}
	kds.BroadcastSessionClosed(session)

	utils.InfoLogger.WithField("session_id", session.ID).Infof("Session closed, total %s", billing.Money(total))
	utils.RespondJSON(c, http.StatusOK, "Session closed", gin.H{
		"session": session,
		"bill":    bill,
	})
}

func shortRef(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
