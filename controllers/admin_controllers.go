package controllers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

// RevenueChartDays is the window of the revenue chart.
const RevenueChartDays = 7

var csvHeaders = []string{"Customer Name", "Parent Name", "Phone Number", "Role", "Items Ordered", "Money Spent", "Timestamp"}

type AdminController struct {
	DB *gorm.DB
	// Location is the zone report days and timestamps use; nil means IST.
	Location *time.Location
	Now      func() time.Time
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{DB: db, Location: billing.IST, Now: time.Now}
}

func (ac *AdminController) location() *time.Location {
	if ac.Location == nil {
		return billing.IST
	}
	return ac.Location
}

func (ac *AdminController) now() time.Time {
	if ac.Now == nil {
		return time.Now()
	}
	return ac.Now()
}

// netAmount is what the customer actually paid for an order.
func netAmount(o models.Order) decimal.Decimal {
	return o.Total.Sub(o.DiscountAmount)
}

// GetDashboardStats -> totals, pending count and the latest orders
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	var orders []models.Order
	if err := ac.DB.Select("id", "total", "discount_amount", "status").Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	revenue := decimal.Zero
	var pending int64
	for _, o := range orders {
		switch o.Status {
		case models.OrderCancelled:
			continue
		case models.OrderPending, models.OrderPreparing:
			pending++
		}
		revenue = revenue.Add(netAmount(o))
	}

	var recent []models.Order
	if err := ac.DB.Preload("Items").Order("created_at DESC").Limit(5).Find(&recent).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var activeSessions int64
	ac.DB.Model(&models.GuestSession{}).Where("status = ?", models.SessionActive).Count(&activeSessions)

	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", gin.H{
		"total_orders":    len(orders),
		"total_revenue":   revenue.StringFixed(2),
		"revenue_display": utils.FormatINR(revenue),
		"pending_orders":  pending,
		"active_sessions": activeSessions,
		"recent_orders":   recent,
	})
}

// ordersReportRow flattens one order for the CSV export.
func ordersReportRow(o models.Order, loc *time.Location) []string {
	role := "unknown"
	name := "Guest"
	phone := "N/A"
	parent := ""

	var guest *models.GuestInfo
	if o.GuestInfo != nil {
		info := o.GuestInfo.Data()
		guest = &info
		role = models.RoleGuest
	}

	switch {
	case o.User != nil:
		role = o.User.Role
		name = o.User.Name
		if o.User.Phone != "" {
			phone = o.User.Phone
		}
		if o.User.Role == models.RoleStudent {
			parent = "N/A"
			if o.User.ParentName != nil && *o.User.ParentName != "" {
				parent = *o.User.ParentName
			}
		}
	case guest != nil:
		if guest.Name != "" {
			name = guest.Name
		}
		if guest.Phone != "" {
			phone = guest.Phone
		}
	}

	items := "No items"
	if len(o.Items) > 0 {
		parts := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			parts = append(parts, fmt.Sprintf("%s (x%d)", it.ItemName, it.Quantity))
		}
		items = strings.Join(parts, "; ")
	}

	return []string{
		name,
		parent,
		phone,
		strings.ToUpper(role),
		items,
		netAmount(o).StringFixed(2),
		o.CreatedAt.In(loc).Format("02 Jan 2006, 03:04 PM"),
	}
}

// ExportOrdersCSV -> detailed order report, newest first
func (ac *AdminController) ExportOrdersCSV(c *gin.Context) {
	var orders []models.Order
	if err := ac.DB.Preload("User").Preload("Items", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	}).Order("created_at DESC").Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeaders); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	loc := ac.location()
	for _, o := range orders {
		if err := w.Write(ordersReportRow(o, loc)); err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	filename := fmt.Sprintf("detailed_orders_report_%s.csv", ac.now().In(loc).Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// dailyRevenue sums net order amounts per local day, oldest day first.
func dailyRevenue(orders []models.Order, end time.Time, days int, loc *time.Location) ([]string, []decimal.Decimal) {
	end = end.In(loc)
	first := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))

	labels := make([]string, days)
	totals := make([]decimal.Decimal, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		labels[i] = day.Format("02 Jan")
		totals[i] = decimal.Zero
		index[day.Format("2006-01-02")] = i
	}

	for _, o := range orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		if i, ok := index[o.CreatedAt.In(loc).Format("2006-01-02")]; ok {
			totals[i] = totals[i].Add(netAmount(o))
		}
	}
	return labels, totals
}

// RevenueChart -> PNG bar chart of the daily revenue
func (ac *AdminController) RevenueChart(c *gin.Context) {
	loc := ac.location()
	now := ac.now()
	since := now.In(loc).AddDate(0, 0, -RevenueChartDays)

	var orders []models.Order
	if err := ac.DB.Select("id", "total", "discount_amount", "status", "created_at").
		Where("created_at >= ?", since).
		Find(&orders).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	labels, totals := dailyRevenue(orders, now, RevenueChartDays, loc)

	maxValue := 1.0
	bars := make([]chart.Value, len(labels))
	for i := range labels {
		v := totals[i].InexactFloat64()
		if v > maxValue {
			maxValue = v
		}
		bars[i] = chart.Value{Label: labels[i], Value: v}
	}

	graph := chart.BarChart{
		Title:      "Revenue (last 7 days)",
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Width:      1024,
		Height:     512,
		BarWidth:   60,
		BarSpacing: 40,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue * 1.1},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		utils.ErrorLogger.WithError(err).Error("Failed to render revenue chart")
		utils.RespondError(c, http.StatusInternalServerError, errors.New("failed to render chart"))
		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

type userRequest struct {
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Email      string  `json:"email"`
	PIN        string  `json:"pin"`
	Role       string  `json:"role"`
	ParentName *string `json:"parent_name"`
}

// GetUsers -> optionally filtered by ?role=
func (ac *AdminController) GetUsers(c *gin.Context) {
	query := ac.DB.Order("name ASC")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of users", users)
}

// applyUserRequest validates body and copies it onto user. A blank PIN keeps
// the stored one.
func applyUserRequest(user *models.User, body userRequest) error {
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return errors.New("name is required")
	}
	if !models.IsValidRole(body.Role) {
		return errors.New("invalid role")
	}

	phone := utils.SanitizePhone(body.Phone)
	if phone != "" && !utils.IsValidPhone(phone) {
		return errors.New("phone must have 10 digits")
	}

	var email *string
	if e := utils.NormalizeEmail(body.Email); e != "" {
		if !utils.IsValidEmail(e) {
			return errors.New("invalid email")
		}
		email = &e
	}

	if body.PIN != "" {
		if !utils.IsValidPIN(body.PIN) {
			return errors.New("PIN must be at least 6 digits")
		}
		hash, err := utils.HashSecret(body.PIN)
		if err != nil {
			return err
		}
		user.PIN = hash
	}
	if body.Role != models.RoleGuest && user.PIN == "" {
		return errors.New("PIN is required for staff and students")
	}

	user.Name = name
	user.Phone = phone
	user.Email = email
	user.Role = body.Role
	user.ParentName = nil
	if body.Role == models.RoleStudent && body.ParentName != nil {
		if p := strings.TrimSpace(*body.ParentName); p != "" {
			user.ParentName = &p
		}
	}
	return nil
}

// CreateUser
func (ac *AdminController) CreateUser(c *gin.Context) {
	var body userRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var user models.User
	if err := applyUserRequest(&user, body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if user.Email != nil {
		var count int64
		ac.DB.Model(&models.User{}).Where("email = ?", *user.Email).Count(&count)
		if count > 0 {
			utils.RespondError(c, http.StatusConflict, errors.New("email already registered"))
			return
		}
	}

	if err := ac.DB.Create(&user).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
		"by":      currentUserID(c),
	}).Info("User created")
	utils.RespondJSON(c, http.StatusCreated, "User created successfully", user)
}

// UpdateUser
func (ac *AdminController) UpdateUser(c *gin.Context) {
	var user models.User
	if err := ac.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		respondDBError(c, err, "user not found")
		return
	}

	var body userRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := applyUserRequest(&user, body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if user.Email != nil {
		var count int64
		ac.DB.Model(&models.User{}).Where("email = ? AND id <> ?", *user.Email, user.ID).Count(&count)
		if count > 0 {
			utils.RespondError(c, http.StatusConflict, errors.New("email already registered"))
			return
		}
	}

	// Save writes the nil parent name and email too
	if err := ac.DB.Save(&user).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "User updated successfully", user)
}

// DeleteUser
func (ac *AdminController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id == currentUserID(c) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("you cannot delete your own account"))
		return
	}

	res := ac.DB.Where("id = ?", id).Delete(&models.User{})
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("user not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "User deleted successfully", nil)
}
