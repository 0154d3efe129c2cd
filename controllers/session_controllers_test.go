package controllers_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/models"
)

type orderLine struct {
	item string
	qty  int
}

// placeOrder creates an order inside the session and returns its id.
func (e *testEnv) placeOrder(t *testing.T, token, userID, sessionID string, menu map[string]models.MenuItem, lines ...orderLine) string {
	t.Helper()
	items := make([]map[string]interface{}, 0, len(lines))
	for _, l := range lines {
		items = append(items, map[string]interface{}{"item_id": menu[l.item].ID, "quantity": l.qty})
	}
	w := e.do(t, http.MethodPost, "/orders", map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
		"table_name": "T5",
		"num_guests": 4,
		"items":      items,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		OrderID string `json:"order_id"`
	}
	decodeResponse(t, w, &data)
	return data.OrderID
}

func (e *testEnv) startSession(t *testing.T, token string) models.GuestSession {
	t.Helper()
	w := e.do(t, http.MethodPost, "/sessions/start", map[string]interface{}{
		"guest_name":  "John Doe",
		"guest_phone": "098765-43210",
		"table_name":  "T5",
		"num_guests":  4,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var session models.GuestSession
	decodeResponse(t, w, &session)
	return session
}

// referenceDinner builds the three order session used across the bill tests.
func referenceDinner(t *testing.T, env *testEnv) (models.User, string, models.GuestSession) {
	menu := env.seedMenu(t)
	guest := env.createUser(t, "John Doe", "9876543210", "john@example.com", models.RoleGuest, "")
	admin := env.createUser(t, "Admin", "9000000001", "", models.RoleAdmin, "123456")
	token := tokenFor(t, guest)

	session := env.startSession(t, token)

	env.placeOrder(t, token, guest.ID, session.ID, menu, orderLine{"Pasta Carbonara", 2}, orderLine{"Caesar Salad", 1})
	second := env.placeOrder(t, token, guest.ID, session.ID, menu, orderLine{"Pasta Carbonara", 1}, orderLine{"Garlic Bread", 2})
	env.placeOrder(t, token, guest.ID, session.ID, menu, orderLine{"Cappuccino", 2}, orderLine{"Tiramisu", 1})

	w := env.do(t, http.MethodPatch, "/admin/orders/"+second+"/discount", map[string]interface{}{"discount_amount": 50}, tokenFor(t, admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	return guest, token, session
}

func TestStartSession_ReturnsExistingActiveSession(t *testing.T) {
	env := setupTestEnv(t)
	guest := env.createUser(t, "John Doe", "9876543210", "john@example.com", models.RoleGuest, "")
	token := tokenFor(t, guest)

	first := env.startSession(t, token)
	assert.Equal(t, "9876543210", first.GuestPhone)
	assert.Equal(t, models.SessionActive, first.Status)
	require.NotNil(t, first.UserID)
	assert.Equal(t, guest.ID, *first.UserID)

	w := env.do(t, http.MethodPost, "/sessions/start", map[string]interface{}{
		"guest_name":  "John Doe",
		"guest_phone": "9876543210",
		"table_name":  "T7",
	}, token)
	require.Equal(t, http.StatusOK, w.Code)
	var again models.GuestSession
	decodeResponse(t, w, &again)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "T5", again.TableName)

	var count int64
	env.DB.Model(&models.GuestSession{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestStartSession_AfterCloseOpensNewSession(t *testing.T) {
	env := setupTestEnv(t)
	guest := env.createUser(t, "John Doe", "9876543210", "john@example.com", models.RoleGuest, "")
	waiter := env.createUser(t, "Waiter", "9000000008", "", models.RoleStaff, "123456")
	token := tokenFor(t, guest)

	first := env.startSession(t, token)
	w := env.do(t, http.MethodPost, "/sessions/"+first.ID+"/close", nil, tokenFor(t, waiter))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var closed models.GuestSession
	require.NoError(t, env.DB.First(&closed, "id = ?", first.ID).Error)
	assert.Nil(t, closed.ActivePhone)

	second := env.startSession(t, token)
	assert.NotEqual(t, first.ID, second.ID)

	var reopened models.GuestSession
	require.NoError(t, env.DB.First(&reopened, "id = ?", second.ID).Error)
	require.NotNil(t, reopened.ActivePhone)
	assert.Equal(t, "9876543210", *reopened.ActivePhone)
}

func TestStartSession_Validation(t *testing.T) {
	env := setupTestEnv(t)
	token := tokenFor(t, env.createUser(t, "Asha", "9123456780", "asha@example.com", models.RoleGuest, ""))

	w := env.do(t, http.MethodPost, "/sessions/start", map[string]interface{}{"guest_name": "Asha"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/sessions/start", map[string]interface{}{
		"guest_name": "Asha", "guest_phone": "12345", "table_name": "T1",
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/sessions/start", map[string]interface{}{
		"guest_name": "Asha", "guest_phone": "9123456780", "table_name": "T1",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/sessions/start", map[string]interface{}{
		"guest_name": "Asha", "guest_phone": "9123456780", "table_name": "T1",
	}, token)
	require.Equal(t, http.StatusCreated, w.Code)
	var session models.GuestSession
	decodeResponse(t, w, &session)
	assert.Equal(t, 1, session.NumGuests)
}

func TestGetSessionBill_ConsolidatesOrders(t *testing.T) {
	env := setupTestEnv(t)
	_, token, session := referenceDinner(t, env)

	w := env.do(t, http.MethodGet, "/sessions/"+session.ID+"/bill", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Bill        billing.Bill `json:"bill"`
		Receipt     string       `json:"receipt"`
		PaymentLink string       `json:"payment_link"`
	}
	decodeResponse(t, w, &data)

	assert.True(t, data.Bill.ItemsTotal.Equal(decimal.NewFromInt(1100)), data.Bill.ItemsTotal.String())
	assert.True(t, data.Bill.DiscountAmount.Equal(decimal.NewFromInt(50)))
	assert.True(t, data.Bill.FinalTotal.Equal(decimal.NewFromInt(1050)))
	assert.Equal(t, 3, data.Bill.OrderCount)
	assert.Equal(t, 5, data.Bill.ItemCount)

	quantities := map[string]int{}
	for _, item := range data.Bill.Items {
		quantities[item.Name] = item.Quantity
	}
	assert.Equal(t, 3, quantities["Pasta Carbonara"])
	assert.Equal(t, 2, quantities["Garlic Bread"])

	assert.Contains(t, data.Receipt, "CONSOLIDATED BILL")
	assert.Contains(t, data.Receipt, "₹1050.00")
	assert.Equal(t, "upi://pay?pa=cavalli@upi&pn=Ai%20Cavalli&am=1050.00&cu=INR", data.PaymentLink)
}

func TestGetSessionBill_SkipsCancelledOrders(t *testing.T) {
	env := setupTestEnv(t)
	menu := env.seedMenu(t)
	guest := env.createUser(t, "Ravi", "9988776655", "ravi@example.com", models.RoleGuest, "")
	staff := env.createUser(t, "Cook", "9000000002", "", models.RoleStaff, "123456")
	token := tokenFor(t, guest)
	session := env.startSession(t, token)

	env.placeOrder(t, token, guest.ID, session.ID, menu, orderLine{"Tiramisu", 1})
	cancelled := env.placeOrder(t, token, guest.ID, session.ID, menu, orderLine{"Garlic Bread", 3})

	w := env.do(t, http.MethodPatch, "/kitchen/orders/"+cancelled+"/status", map[string]string{"status": models.OrderCancelled}, tokenFor(t, staff))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/sessions/"+session.ID+"/bill", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Bill billing.Bill `json:"bill"`
	}
	decodeResponse(t, w, &data)
	assert.Equal(t, 1, data.Bill.OrderCount)
	assert.True(t, data.Bill.FinalTotal.Equal(decimal.NewFromInt(100)))
}

func TestGetSessionBill_Access(t *testing.T) {
	env := setupTestEnv(t)
	_, _, session := referenceDinner(t, env)

	stranger := env.createUser(t, "Other", "9111111111", "other@example.com", models.RoleGuest, "")
	w := env.do(t, http.MethodGet, "/sessions/"+session.ID+"/bill", nil, tokenFor(t, stranger))
	assert.Equal(t, http.StatusForbidden, w.Code)

	staff := env.createUser(t, "Waiter", "9000000003", "", models.RoleStaff, "123456")
	w = env.do(t, http.MethodGet, "/sessions/"+session.ID+"/bill", nil, tokenFor(t, staff))
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/sessions/missing/bill", nil, tokenFor(t, staff))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSessionBillPDF(t *testing.T) {
	env := setupTestEnv(t)
	_, token, session := referenceDinner(t, env)

	w := env.do(t, http.MethodGet, "/sessions/"+session.ID+"/bill.pdf", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-"))
}

func TestRequestBill_StoresFinalTotal(t *testing.T) {
	env := setupTestEnv(t)
	_, token, session := referenceDinner(t, env)

	w := env.do(t, http.MethodPost, "/bills/request", map[string]string{"session_id": session.ID}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.GuestSession
	require.NoError(t, env.DB.First(&stored, "id = ?", session.ID).Error)
	assert.True(t, stored.BillRequested)
	assert.NotNil(t, stored.BillRequestedAt)
	require.NotNil(t, stored.TotalAmount)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(1050)), stored.TotalAmount.String())
	assert.Equal(t, models.SessionActive, stored.Status)

	w = env.do(t, http.MethodPost, "/bills/request", map[string]string{"session_id": "nope"}, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/bills/request", map[string]string{}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCloseSession_DeliversBill(t *testing.T) {
	env := setupTestEnv(t)
	_, token, session := referenceDinner(t, env)
	staff := env.createUser(t, "Waiter", "9000000004", "", models.RoleStaff, "123456")
	staffToken := tokenFor(t, staff)

	w := env.do(t, http.MethodPost, "/sessions/"+session.ID+"/close", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/sessions/"+session.ID+"/close", nil, staffToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored models.GuestSession
	require.NoError(t, env.DB.First(&stored, "id = ?", session.ID).Error)
	assert.Equal(t, models.SessionClosed, stored.Status)
	assert.NotNil(t, stored.EndedAt)

	// order confirmations share the mailbox, the bill mail carries the session total
	billMail := func() (sentMail, bool) {
		for _, m := range env.Mail.Mails() {
			if strings.Contains(m.Subject, "₹1050.00") {
				return m, true
			}
		}
		return sentMail{}, false
	}
	require.Eventually(t, func() bool {
		_, ok := billMail()
		return ok && len(env.WhatsApp.Messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	msg := env.WhatsApp.Messages()[0]
	assert.Equal(t, "9876543210", msg.Phone)
	assert.Contains(t, msg.Text, "*TOTAL: ₹1050.00*")
	assert.Contains(t, msg.Text, "upi://pay?pa=cavalli@upi")

	receipt, _ := billMail()
	assert.Equal(t, "john@example.com", receipt.To)

	w = env.do(t, http.MethodPost, "/sessions/"+session.ID+"/close", nil, staffToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/bills/request", map[string]string{"session_id": session.ID}, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetActiveSession(t *testing.T) {
	env := setupTestEnv(t)
	guest := env.createUser(t, "John Doe", "9876543210", "john@example.com", models.RoleGuest, "")
	token := tokenFor(t, guest)

	w := env.do(t, http.MethodGet, "/sessions/active", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	session := env.startSession(t, token)
	w = env.do(t, http.MethodGet, "/sessions/active", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	var active models.GuestSession
	decodeResponse(t, w, &active)
	assert.Equal(t, session.ID, active.ID)
}
