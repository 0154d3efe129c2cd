package controllers_test

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/datatypes"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestDashboardStats(t *testing.T) {
	env := setupTestEnv(t)
	referenceDinner(t, env)
	admin := env.createUser(t, "Boss", "9000000030", "", models.RoleAdmin, "123456")

	var orders []models.Order
	require.NoError(t, env.DB.Order("created_at ASC").Find(&orders).Error)
	require.Len(t, orders, 3)
	require.NoError(t, env.DB.Model(&orders[0]).Update("status", models.OrderCompleted).Error)
	require.NoError(t, env.DB.Model(&orders[1]).Update("status", models.OrderPreparing).Error)

	w := env.do(t, http.MethodGet, "/admin/dashboard/stats", nil, tokenFor(t, admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stats struct {
		TotalOrders    int            `json:"total_orders"`
		TotalRevenue   string         `json:"total_revenue"`
		RevenueDisplay string         `json:"revenue_display"`
		PendingOrders  int            `json:"pending_orders"`
		ActiveSessions int            `json:"active_sessions"`
		RecentOrders   []models.Order `json:"recent_orders"`
	}
	decodeResponse(t, w, &stats)
	assert.Equal(t, 3, stats.TotalOrders)
	assert.Equal(t, "1050.00", stats.TotalRevenue)
	assert.Equal(t, "₹1,050.00", stats.RevenueDisplay)
	assert.Equal(t, 2, stats.PendingOrders)
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Len(t, stats.RecentOrders, 3)
}

func TestDashboardStats_AdminOnly(t *testing.T) {
	env := setupTestEnv(t)
	manager := env.createUser(t, "Manager", "9000000031", "", models.RoleKitchenManager, "123456")

	w := env.do(t, http.MethodGet, "/admin/dashboard/stats", nil, tokenFor(t, manager))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/admin/dashboard/stats", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExportOrdersCSV(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.createUser(t, "Boss", "9000000032", "", models.RoleAdmin, "123456")
	parent := "Mrs. Rao"
	student := models.User{Name: "Meera", Phone: "9123123123", Role: models.RoleStudent, ParentName: &parent}
	require.NoError(t, env.DB.Create(&student).Error)
	guest := env.createUser(t, "John Doe", "9876543210", "", models.RoleGuest, "")

	created := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	studentOrder := models.Order{
		UserID: student.ID, TableName: "T1", Total: decimal.NewFromInt(250), Status: models.OrderCompleted, CreatedAt: created,
		Items: []models.OrderItem{
			{MenuItemID: "m1", ItemName: "Masala Dosa", Quantity: 2, Price: decimal.NewFromInt(100)},
			{MenuItemID: "m2", ItemName: "Filter Coffee", Quantity: 1, Price: decimal.NewFromInt(50)},
		},
	}
	require.NoError(t, env.DB.Create(&studentOrder).Error)

	info := datatypes.NewJSONType(models.GuestInfo{Name: "John Doe", Phone: "9876543210"})
	guestOrder := models.Order{
		UserID: guest.ID, TableName: "T5", Total: decimal.NewFromInt(350), DiscountAmount: decimal.NewFromInt(50),
		Status: models.OrderPending, GuestInfo: &info, CreatedAt: created.Add(time.Hour),
		Items: []models.OrderItem{{MenuItemID: "m3", ItemName: "Garlic Bread", Quantity: 2, Price: decimal.NewFromInt(175)}},
	}
	require.NoError(t, env.DB.Create(&guestOrder).Error)

	w := env.do(t, http.MethodGet, "/admin/reports/orders.csv", nil, tokenFor(t, admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	today := time.Now().In(billing.IST).Format("2006-01-02")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "detailed_orders_report_"+today+".csv")

	rows, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Customer Name", "Parent Name", "Phone Number", "Role", "Items Ordered", "Money Spent", "Timestamp"}, rows[0])

	// newest first
	assert.Equal(t, []string{"John Doe", "", "9876543210", "GUEST", "Garlic Bread (x2)", "300.00", "15 Oct 2026, 02:30 PM"}, rows[1])
	assert.Equal(t, []string{"Meera", "Mrs. Rao", "9123123123", "STUDENT", "Masala Dosa (x2); Filter Coffee (x1)", "250.00", "15 Oct 2026, 01:30 PM"}, rows[2])
}

func TestRevenueChart(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.createUser(t, "Boss", "9000000033", "", models.RoleAdmin, "123456")

	// an empty week still renders
	w := env.do(t, http.MethodGet, "/admin/reports/revenue.png", nil, tokenFor(t, admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	referenceDinner(t, env)
	w = env.do(t, http.MethodGet, "/admin/reports/revenue.png", nil, tokenFor(t, admin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestUserManagement(t *testing.T) {
	env := setupTestEnv(t)
	manager := env.createUser(t, "Manager", "9000000034", "", models.RoleKitchenManager, "123456")
	token := tokenFor(t, manager)

	w := env.do(t, http.MethodPost, "/admin/users", map[string]interface{}{
		"name": "Meera", "phone": "9123123123", "pin": "246810", "role": models.RoleStudent, "parent_name": "Mrs. Rao",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var student models.User
	decodeResponse(t, w, &student)
	require.NotNil(t, student.ParentName)
	assert.Equal(t, "Mrs. Rao", *student.ParentName)

	var stored models.User
	require.NoError(t, env.DB.First(&stored, "id = ?", student.ID).Error)
	assert.True(t, utils.CheckSecret("246810", stored.PIN))

	// parent name is only kept for students
	w = env.do(t, http.MethodPost, "/admin/users", map[string]interface{}{
		"name": "Ravi", "phone": "9234234234", "email": "Ravi@Example.com", "pin": "135790", "role": models.RoleStaff, "parent_name": "Ignored",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var staff models.User
	decodeResponse(t, w, &staff)
	assert.Nil(t, staff.ParentName)
	require.NotNil(t, staff.Email)
	assert.Equal(t, "ravi@example.com", *staff.Email)

	for name, body := range map[string]map[string]interface{}{
		"bad role":      {"name": "X", "phone": "9345345345", "pin": "135790", "role": "chef"},
		"short pin":     {"name": "X", "phone": "9345345345", "pin": "12", "role": models.RoleStaff},
		"missing pin":   {"name": "X", "phone": "9345345345", "role": models.RoleStaff},
		"bad phone":     {"name": "X", "phone": "12", "pin": "135790", "role": models.RoleStaff},
		"missing name":  {"phone": "9345345345", "pin": "135790", "role": models.RoleStaff},
	} {
		w = env.do(t, http.MethodPost, "/admin/users", body, token)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}

	w = env.do(t, http.MethodPost, "/admin/users", map[string]interface{}{
		"name": "Dup", "email": "ravi@example.com", "pin": "135790", "role": models.RoleStaff,
	}, token)
	assert.Equal(t, http.StatusConflict, w.Code)

	// promoting the student to staff drops the parent name and keeps the PIN
	w = env.do(t, http.MethodPut, "/admin/users/"+student.ID, map[string]interface{}{
		"name": "Meera K", "phone": "9123123123", "role": models.RoleStaff, "parent_name": "Mrs. Rao",
	}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, env.DB.First(&stored, "id = ?", student.ID).Error)
	assert.Equal(t, "Meera K", stored.Name)
	assert.Nil(t, stored.ParentName)
	assert.True(t, utils.CheckSecret("246810", stored.PIN))

	w = env.do(t, http.MethodGet, "/admin/users?role="+models.RoleStaff, nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.User
	decodeResponse(t, w, &users)
	assert.Len(t, users, 2)

	w = env.do(t, http.MethodDelete, "/admin/users/"+manager.ID, nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodDelete, "/admin/users/"+staff.ID, nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodDelete, "/admin/users/"+staff.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	guest := env.createUser(t, "John", "9876543210", "john@example.com", models.RoleGuest, "")
	w = env.do(t, http.MethodGet, "/admin/users", nil, tokenFor(t, guest))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
