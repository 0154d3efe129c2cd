package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cavalli-app/billing"
	"github.com/yeremiapane/cavalli-app/controllers"
	"github.com/yeremiapane/cavalli-app/database"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/router"
	"github.com/yeremiapane/cavalli-app/services"
	"github.com/yeremiapane/cavalli-app/storage"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sentMessage struct {
	Phone string
	Text  string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeMessenger) SendMessage(ctx context.Context, phone, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Phone: phone, Text: text})
	return "msg-" + phone, nil
}

func (f *fakeMessenger) Messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type sentMail struct {
	To      string
	Subject string
	HTML    string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, html string) (services.EmailResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, HTML: html})
	return services.EmailResult{ID: "mail-1"}, nil
}

func (f *fakeMailer) Mails() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	DB       *gorm.DB
	Router   *gin.Engine
	WhatsApp *fakeMessenger
	Mail     *fakeMailer
	Notifier *services.Notifier
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func setupTestEnv(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)
	utils.InitJWT("test-secret", time.Hour)

	env := &testEnv{
		DB:       setupTestDB(t),
		WhatsApp: &fakeMessenger{},
		Mail:     &fakeMailer{},
	}
	payment := billing.PaymentConfig{PaymentID: "cavalli@upi", MerchantName: "Ai Cavalli"}
	env.Notifier = &services.Notifier{
		WhatsApp:   env.WhatsApp,
		Email:      env.Mail,
		Restaurant: "Ai Cavalli",
		Payment:    payment,
	}

	uploads := t.TempDir()
	images, err := storage.NewLocalStore(uploads, "http://cdn.test")
	require.NoError(t, err)

	env.Router = router.SetupRouter(router.Dependencies{
		DB:       env.DB,
		Notifier: env.Notifier,
		Images:   images,
		Bill:     billing.Options{RestaurantName: "Ai Cavalli", Payment: payment},
		Auth: controllers.AuthConfig{
			InternalEmailDomain: "aicavalli.com",
			AppBaseURL:          "http://app.test",
		},
		AllowedOrigins: []string{"http://app.test"},
		UploadDir:      uploads,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func (e *testEnv) createUser(t *testing.T, name, phone, email, role, pin string) models.User {
	t.Helper()
	user := models.User{Name: name, Phone: phone, Role: role}
	if email != "" {
		user.Email = &email
	}
	if pin != "" {
		hash, err := utils.HashSecret(pin)
		require.NoError(t, err)
		user.PIN = hash
	}
	require.NoError(t, e.DB.Create(&user).Error)
	return user
}

func tokenFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)
	return token
}

// seedMenu creates one category with the reference dinner items keyed by name.
func (e *testEnv) seedMenu(t *testing.T) map[string]models.MenuItem {
	t.Helper()
	category := models.MenuCategory{Name: "Mains"}
	require.NoError(t, e.DB.Create(&category).Error)

	items := map[string]models.MenuItem{}
	for _, m := range []struct {
		name  string
		price int64
	}{
		{"Pasta Carbonara", 150},
		{"Caesar Salad", 150},
		{"Garlic Bread", 100},
		{"Cappuccino", 100},
		{"Tiramisu", 100},
	} {
		item := models.MenuItem{CategoryID: category.ID, Name: m.name, Price: decimal.NewFromInt(m.price), Available: true}
		require.NoError(t, e.DB.Create(&item).Error)
		items[m.name] = item
	}
	return items
}
