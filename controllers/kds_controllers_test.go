package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cavalli-app/models"
)

func TestGetKitchenOrders(t *testing.T) {
	env := setupTestEnv(t)
	_, token, session := referenceDinner(t, env)
	staff := tokenFor(t, env.createUser(t, "Chef", "9000000050", "", models.RoleStaff, "123456"))

	var orders []models.Order
	require.NoError(t, env.DB.Order("created_at ASC").Find(&orders).Error)
	require.Len(t, orders, 3)
	require.NoError(t, env.DB.Model(&orders[0]).Update("status", models.OrderCompleted).Error)

	w := env.do(t, http.MethodPost, "/bills/request", map[string]interface{}{"session_id": session.ID}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/kitchen/orders", nil, staff)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var queue struct {
		Orders       []models.Order        `json:"orders"`
		BillRequests []models.GuestSession `json:"bill_requests"`
	}
	decodeResponse(t, w, &queue)
	require.Len(t, queue.Orders, 2)
	for _, o := range queue.Orders {
		assert.NotEqual(t, models.OrderCompleted, o.Status)
		assert.Len(t, o.Items, 2)
	}
	require.Len(t, queue.BillRequests, 1)
	assert.Equal(t, session.ID, queue.BillRequests[0].ID)

	w = env.do(t, http.MethodGet, "/kitchen/orders", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestKDSHandler_RequiresKitchenRole(t *testing.T) {
	env := setupTestEnv(t)
	guest := tokenFor(t, env.createUser(t, "John", "9876543210", "john@example.com", models.RoleGuest, ""))

	w := env.do(t, http.MethodGet, "/ws/kitchen", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/ws/kitchen?token="+guest, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
