package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cavalli-app/middlewares"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/services"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

const (
	OTPExpiry        = 5 * time.Minute
	OTPRateWindow    = 10 * time.Minute
	OTPRateLimit     = 3
	OTPMaxAttempts   = 5
	PINResetTokenTTL = 30 * time.Minute
)

type AuthConfig struct {
	InternalEmailDomain string
	AppBaseURL          string
}

type AuthController struct {
	DB       *gorm.DB
	Notifier *services.Notifier
	Config   AuthConfig
	// GenerateOTP is replaceable in tests.
	GenerateOTP func() (string, error)
}

func NewAuthController(db *gorm.DB, notifier *services.Notifier, cfg AuthConfig) *AuthController {
	return &AuthController{DB: db, Notifier: notifier, Config: cfg, GenerateOTP: utils.GenerateOTP}
}

func userProfile(u models.User) gin.H {
	return gin.H{
		"id":          u.ID,
		"name":        u.Name,
		"email":       u.Email,
		"phone":       u.Phone,
		"role":        u.Role,
		"parent_name": u.ParentName,
	}
}

// SendOTP -> registers or refreshes a guest and sends a login code
func (ac *AuthController) SendOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidPayload)
		return
	}

	email := utils.NormalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid email address"))
		return
	}
	phone := utils.SanitizePhone(req.Phone)
	name := strings.TrimSpace(req.Name)

	if phone != "" && name != "" {
		var internal int64
		if err := ac.DB.Model(&models.User{}).
			Where("phone = ? AND role IN ?", phone, []string{models.RoleStaff, models.RoleStudent}).
			Count(&internal).Error; err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		if internal > 0 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("this phone number is registered to internal personnel, please use a different number"))
			return
		}
	}

	var user models.User
	query := ac.DB.Where("email = ?", email)
	if phone != "" {
		query = query.Or("phone = ?", phone)
	}
	err := query.First(&user).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if name != "" {
		if phone == "" {
			utils.RespondError(c, http.StatusBadRequest, errors.New("phone number is required for registration"))
			return
		}

		if found && user.Role == models.RoleGuest {
			user.Name = name
			user.Email = &email
			user.Phone = phone
			if err := ac.DB.Save(&user).Error; err != nil {
				utils.RespondError(c, http.StatusInternalServerError, err)
				return
			}
		} else if !found {
			user = models.User{Name: name, Email: &email, Phone: phone, Role: models.RoleGuest}
			if err := ac.DB.Create(&user).Error; err != nil {
				utils.RespondError(c, http.StatusInternalServerError, fmt.Errorf("registration failed: %w", err))
				return
			}
			found = true
			utils.InfoLogger.WithFields(logrus.Fields{"email": email, "phone": utils.FormatPhoneDisplay(phone)}).Info("New guest registered")
		}
	}

	if !found {
		utils.RespondErrorData(c, http.StatusNotFound, errors.New("new user detected, please provide your name"),
			gin.H{"needs_registration": true})
		return
	}

	var recent int64
	if err := ac.DB.Model(&models.OTPCode{}).
		Where("email = ? AND created_at > ?", email, time.Now().Add(-OTPRateWindow)).
		Count(&recent).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if recent >= OTPRateLimit {
		utils.RespondError(c, http.StatusTooManyRequests, errors.New("too many codes requested, please try again in a few minutes"))
		return
	}

	code, err := ac.GenerateOTP()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	hash, err := utils.HashSecret(code)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	otp := models.OTPCode{Email: email, Phone: user.Phone, CodeHash: hash, ExpiresAt: time.Now().Add(OTPExpiry)}
	if err := ac.DB.Create(&otp).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if err := ac.Notifier.SendOTP(c.Request.Context(), email, user.Phone, user.Name, code); err != nil {
		utils.ErrorLogger.WithError(err).WithField("email", email).Error("Failed to deliver OTP")
		utils.RespondError(c, http.StatusInternalServerError, errors.New("failed to send verification email, please try again"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "A verification code has been sent to your email", gin.H{
		"expires_in": int(OTPExpiry.Seconds()),
		"user_name":  user.Name,
	})
}

// VerifyOTP -> exchanges a valid code for an access token
func (ac *AuthController) VerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidPayload)
		return
	}

	email := utils.NormalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid email address"))
		return
	}
	if !utils.ValidateOTPFormat(req.OTP) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid code format, must be 6 digits"))
		return
	}

	var otp models.OTPCode
	err := ac.DB.Where("email = ? AND consumed = ? AND expires_at > ?", email, false, time.Now()).
		Order("created_at DESC").First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired code"))
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if otp.Attempts >= OTPMaxAttempts {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("too many attempts, please request a new code"))
		return
	}
	if !utils.CheckSecret(req.OTP, otp.CodeHash) {
		if err := ac.DB.Model(&otp).UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			utils.ErrorLogger.WithError(err).WithField("email", email).Error("Failed to count OTP attempt")
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired code"))
		return
	}

	// only one verify may redeem the code
	res := ac.DB.Model(&models.OTPCode{}).
		Where("id = ? AND consumed = ?", otp.ID, false).
		Update("consumed", true)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected != 1 {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired code"))
		return
	}

	var user models.User
	if err := ac.DB.Where("email = ?", email).First(&user).Error; err != nil {
		respondDBError(c, err, "profile not found, please contact administration")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"user":  userProfile(user),
	})
}

// Login -> staff, student and admin sign in with phone or email and PIN
func (ac *AuthController) Login(c *gin.Context) {
	var req struct {
		Phone string `json:"phone"`
		Email string `json:"email"`
		PIN   string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var user models.User
	var err error
	switch {
	case req.Phone != "":
		// a guest may share the number, staff accounts win
		err = ac.DB.Where("phone = ?", utils.SanitizePhone(req.Phone)).
			Order(fmt.Sprintf("CASE WHEN role = '%s' THEN 1 ELSE 0 END", models.RoleGuest)).
			First(&user).Error
	case req.Email != "":
		err = ac.DB.Where("email = ?", utils.NormalizeEmail(req.Email)).First(&user).Error
	default:
		utils.RespondError(c, http.StatusBadRequest, errors.New("phone or email is required"))
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	if user.Role == models.RoleGuest {
		utils.RespondError(c, http.StatusForbidden, errors.New("guests sign in with a one time code"))
		return
	}
	if user.PIN == "" || !utils.CheckSecret(req.PIN, user.PIN) {
		utils.InfoLogger.WithField("user_id", user.ID).Warn("Failed PIN login")
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"user":  userProfile(user),
	})
}

// RequestPINReset -> emails a reset link to staff with a real mailbox
func (ac *AuthController) RequestPINReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("email is required"))
		return
	}
	email := utils.NormalizeEmail(req.Email)

	var user models.User
	if err := ac.DB.Where("email = ?", email).First(&user).Error; err != nil {
		respondDBError(c, err, "account not found, please contact administration")
		return
	}

	if user.Role == models.RoleGuest {
		utils.RespondError(c, http.StatusForbidden, errors.New("guests use OTP login, please use the guest entry portal"))
		return
	}

	if ac.Config.InternalEmailDomain != "" && strings.HasSuffix(email, "@"+ac.Config.InternalEmailDomain) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("self-service reset is not available for accounts without a linked email, please contact your administrator"))
		return
	}

	token, err := utils.GenerateResetToken(user.ID, PINResetTokenTTL)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	link := fmt.Sprintf("%s/reset-pin?token=%s", strings.TrimRight(ac.Config.AppBaseURL, "/"), url.QueryEscape(token))

	if err := ac.Notifier.SendPINReset(c.Request.Context(), email, user.Name, link); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "A PIN reset link has been sent to your email", nil)
}

// ResetPIN -> sets a new PIN using a reset token, once
func (ac *AuthController) ResetPIN(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
		PIN   string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if !utils.IsValidPIN(req.PIN) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("PIN must be at least 6 digits"))
		return
	}

	claims, err := utils.ParseToken(req.Token)
	if err != nil || claims.Purpose != utils.PurposePINReset {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("reset link is invalid or has expired"))
		return
	}

	hash, err := utils.HashSecret(req.PIN)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	result := ac.DB.Model(&models.User{}).Where("id = ?", claims.UserID).Update("pin", hash)
	if result.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("account not found"))
		return
	}

	utils.BlacklistToken(req.Token, claims.ExpiresAt.Time)
	utils.RespondJSON(c, http.StatusOK, "PIN updated successfully", nil)
}

// Logout -> revokes the presented token
func (ac *AuthController) Logout(c *gin.Context) {
	claimsValue, ok := c.Get(middlewares.CtxClaims)
	claims, _ := claimsValue.(*utils.CustomClaims)
	if !ok || claims == nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
		return
	}

	utils.BlacklistToken(c.GetString(middlewares.CtxToken), claims.ExpiresAt.Time)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

// Me -> profile of the caller
func (ac *AuthController) Me(c *gin.Context) {
	var user models.User
	if err := ac.DB.First(&user, "id = ?", currentUserID(c)).Error; err != nil {
		respondDBError(c, err, "user not found")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Profile data retrieved successfully", userProfile(user))
}
