package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cavalli-app/kds"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/storage"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

// MaxUploadSize caps image uploads.
const MaxUploadSize = 5 << 20

type AnnouncementController struct {
	DB     *gorm.DB
	Images storage.ImageStore
}

func NewAnnouncementController(db *gorm.DB, images storage.ImageStore) *AnnouncementController {
	return &AnnouncementController{DB: db, Images: images}
}

// GetAnnouncements -> newest first
func (ac *AnnouncementController) GetAnnouncements(c *gin.Context) {
	var announcements []models.Announcement
	if err := ac.DB.Order("created_at DESC").Find(&announcements).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All announcements", announcements)
}

// CreateAnnouncement -> stored and pushed to connected displays
func (ac *AnnouncementController) CreateAnnouncement(c *gin.Context) {
	var body struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		Link        string `json:"link"`
		ImageURL    string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	announcement := models.Announcement{
		Title:       strings.TrimSpace(body.Title),
		Description: body.Description,
		Link:        body.Link,
		ImageURL:    body.ImageURL,
	}
	if announcement.Title == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("title is required"))
		return
	}

	if err := ac.DB.Create(&announcement).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Announcement created: %s", announcement.Title)
	kds.BroadcastAnnouncement(announcement)

	utils.RespondJSON(c, http.StatusCreated, "Announcement created", announcement)
}

// DeleteAnnouncement
func (ac *AnnouncementController) DeleteAnnouncement(c *gin.Context) {
	id := c.Param("id")
	res := ac.DB.Where("id = ?", id).Delete(&models.Announcement{})
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("announcement not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Announcement deleted", gin.H{"id": id})
}

// UploadImage -> multipart "file", optional "folder" of menu or announcements
func (ac *AnnouncementController) UploadImage(c *gin.Context) {
	if ac.Images == nil {
		utils.RespondError(c, http.StatusServiceUnavailable, errors.New("image storage is not configured"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)
	file, err := c.FormFile("file")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	if file.Size > MaxUploadSize {
		utils.RespondError(c, http.StatusRequestEntityTooLarge, errors.New("file is too large"))
		return
	}

	folder := "announcements"
	if c.PostForm("folder") == "menu" {
		folder = "menu"
	}

	key, contentType, err := storage.NewImageKey(folder, file.Filename)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	src, err := file.Open()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	defer src.Close()

	url, err := ac.Images.Save(c.Request.Context(), key, contentType, src)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("key", key).Error("Image upload failed")
		utils.RespondError(c, http.StatusInternalServerError, errors.New("failed to store image"))
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Image uploaded", gin.H{"url": url, "key": key})
}
