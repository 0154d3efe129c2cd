package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

type MenuController struct {
	DB *gorm.DB
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db}
}

type menuItemRequest struct {
	CategoryID  uint             `json:"category_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Available   *bool            `json:"available"`
	ImageURL    string           `json:"image_url"`
}

// GetMenu -> public listing, filtered by ?category= and ?q=
func (mc *MenuController) GetMenu(c *gin.Context) {
	query := mc.DB.Preload("Category").Order("name ASC")

	if cat := c.Query("category"); cat != "" {
		id, err := strconv.Atoi(cat)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("invalid category"))
			return
		}
		query = query.Where("category_id = ?", id)
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	// kitchen and admin screens see sold out items too
	if !isKitchenStaff(c) {
		query = query.Where("available = ?", true)
	}

	var items []models.MenuItem
	if err := query.Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

// GetMenuItemByID
func (mc *MenuController) GetMenuItemByID(c *gin.Context) {
	var item models.MenuItem
	if err := mc.DB.Preload("Category").First(&item, "id = ?", c.Param("item_id")).Error; err != nil {
		respondDBError(c, err, "menu item not found")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item detail", item)
}

// CreateMenuItem
func (mc *MenuController) CreateMenuItem(c *gin.Context) {
	var body menuItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" || body.CategoryID == 0 || body.Price == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("category_id, name and price are required"))
		return
	}
	if body.Price.IsNegative() {
		utils.RespondError(c, http.StatusBadRequest, errors.New("price cannot be negative"))
		return
	}

	var category models.MenuCategory
	if err := mc.DB.First(&category, body.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondError(c, http.StatusBadRequest, errors.New("category not found"))
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	item := models.MenuItem{
		CategoryID:  category.ID,
		Name:        name,
		Description: body.Description,
		Price:       *body.Price,
		Available:   true,
		ImageURL:    body.ImageURL,
	}
	if body.Available != nil {
		item.Available = *body.Available
	}

	if err := mc.DB.Create(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	item.Category = &category

	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

// UpdateMenuItem -> only the fields present in the body change
func (mc *MenuController) UpdateMenuItem(c *gin.Context) {
	var item models.MenuItem
	if err := mc.DB.First(&item, "id = ?", c.Param("item_id")).Error; err != nil {
		respondDBError(c, err, "menu item not found")
		return
	}

	var body menuItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if body.CategoryID != 0 && body.CategoryID != item.CategoryID {
		var count int64
		mc.DB.Model(&models.MenuCategory{}).Where("id = ?", body.CategoryID).Count(&count)
		if count == 0 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("category not found"))
			return
		}
		item.CategoryID = body.CategoryID
	}
	if name := strings.TrimSpace(body.Name); name != "" {
		item.Name = name
	}
	if body.Description != "" {
		item.Description = body.Description
	}
	if body.Price != nil {
		if body.Price.IsNegative() {
			utils.RespondError(c, http.StatusBadRequest, errors.New("price cannot be negative"))
			return
		}
		item.Price = *body.Price
	}
	if body.Available != nil {
		item.Available = *body.Available
	}
	if body.ImageURL != "" {
		item.ImageURL = body.ImageURL
	}

	if err := mc.DB.Save(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

// SetAvailability -> marks an item in stock or sold out
func (mc *MenuController) SetAvailability(c *gin.Context) {
	var body struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	res := mc.DB.Model(&models.MenuItem{}).Where("id = ?", c.Param("item_id")).Update("available", *body.Available)
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("menu item not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Availability updated", gin.H{"id": c.Param("item_id"), "available": *body.Available})
}

// DeleteMenuItem
func (mc *MenuController) DeleteMenuItem(c *gin.Context) {
	res := mc.DB.Where("id = ?", c.Param("item_id")).Delete(&models.MenuItem{})
	if res.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("menu item not found"))
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}
