package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/cavalli-app/models"
	"github.com/yeremiapane/cavalli-app/utils"
	"gorm.io/gorm"
)

type MenuCategoryController struct {
	DB *gorm.DB
}

func NewMenuCategoryController(db *gorm.DB) *MenuCategoryController {
	return &MenuCategoryController{DB: db}
}

type categoryRequest struct {
	Name      string `json:"name" binding:"required"`
	SortOrder int    `json:"sort_order"`
}

// GetAllCategories
func (mcc *MenuCategoryController) GetAllCategories(c *gin.Context) {
	var categories []models.MenuCategory
	if err := mcc.DB.Order("sort_order ASC, name ASC").Find(&categories).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All menu categories", categories)
}

// CreateCategory
func (mcc *MenuCategoryController) CreateCategory(c *gin.Context) {
	var body categoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("category name is required"))
		return
	}

	var count int64
	mcc.DB.Model(&models.MenuCategory{}).Where("name = ?", name).Count(&count)
	if count > 0 {
		utils.RespondError(c, http.StatusConflict, errors.New("category already exists"))
		return
	}

	category := models.MenuCategory{Name: name, SortOrder: body.SortOrder}
	if err := mcc.DB.Create(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

// UpdateCategory
func (mcc *MenuCategoryController) UpdateCategory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("cat_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid category id"))
		return
	}

	var category models.MenuCategory
	if err := mcc.DB.First(&category, id).Error; err != nil {
		respondDBError(c, err, "category not found")
		return
	}

	var body categoryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category.Name = strings.TrimSpace(body.Name)
	category.SortOrder = body.SortOrder
	if err := mcc.DB.Save(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

// DeleteCategory -> refuses while items still reference it
func (mcc *MenuCategoryController) DeleteCategory(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("cat_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid category id"))
		return
	}

	var category models.MenuCategory
	if err := mcc.DB.First(&category, id).Error; err != nil {
		respondDBError(c, err, "category not found")
		return
	}

	var items int64
	mcc.DB.Model(&models.MenuItem{}).Where("category_id = ?", category.ID).Count(&items)
	if items > 0 {
		utils.RespondError(c, http.StatusConflict, errors.New("category still has menu items"))
		return
	}

	if err := mcc.DB.Delete(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Category deleted", nil)
}
