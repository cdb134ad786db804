package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/models"
	"finmanager/internal/pagination"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(
	name string,
	categoryType models.CategoryType,
	description *string,
	parentID *string,
) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if !categoryType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be INCOME, EXPENSE or SAVING")
	}

	if err := s.ensureNameFree(name, ""); err != nil {
		return nil, err
	}

	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	if parentID != nil {
		if _, err := s.GetCategoryByID(*parentID); err != nil {
			return nil, err
		}
	}

	category := &models.Category{
		Name:        name,
		Type:        categoryType,
		Description: description,
		ParentID:    parentID,
	}

	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// ListCategories retrieves a paginated list of categories ordered by name.
func (s *categoryService) ListCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	result, err := pagination.Find[models.Category](s.db.Model(&models.Category{}), page, "name")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetAllCategories returns every category ordered by name.
func (s *categoryService) GetAllCategories() ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.Order("name").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoriesByType returns the categories of one type ordered by name.
func (s *categoryService) GetCategoriesByType(categoryType models.CategoryType) ([]models.Category, error) {
	if !categoryType.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be INCOME, EXPENSE or SAVING")
	}

	var categories []models.Category
	if err := s.db.Where("type = ?", categoryType).Order("name").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategoryByID retrieves a category by ID
func (s *categoryService) GetCategoryByID(categoryID string) (*models.Category, error) {
	var category models.Category
	if err := s.db.Where("id = ?", categoryID).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound(apperrors.ErrCategoryNotFound, "Category", categoryID)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// FindCategoryByName looks a category up by name, ignoring case.
func (s *categoryService) FindCategoryByName(name string) (*models.Category, error) {
	var category models.Category
	err := s.db.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "Category not found with name: "+name)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory applies the non-nil fields of update to a category.
func (s *categoryService) UpdateCategory(categoryID string, update CategoryUpdate) (*models.Category, error) {
	category, err := s.GetCategoryByID(categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
		}
		if !strings.EqualFold(name, category.Name) {
			if err := s.ensureNameFree(name, categoryID); err != nil {
				return nil, err
			}
		}
		updates["name"] = name
	}
	if update.Type != nil {
		if !update.Type.Valid() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be INCOME, EXPENSE or SAVING")
		}
		updates["type"] = *update.Type
	}
	if update.Description != nil {
		updates["description"] = *update.Description
	}
	if update.ParentID != nil {
		if *update.ParentID == "" {
			updates["parent_id"] = nil
		} else {
			if err := s.checkParent(categoryID, *update.ParentID); err != nil {
				return nil, err
			}
			updates["parent_id"] = *update.ParentID
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(category).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetCategoryByID(categoryID)
}

// DeleteCategory deletes a category that nothing references.
func (s *categoryService) DeleteCategory(categoryID string) error {
	category, err := s.GetCategoryByID(categoryID)
	if err != nil {
		return err
	}

	var childCount int64
	if err := s.db.Model(&models.Category{}).Where("parent_id = ?", categoryID).Count(&childCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if childCount > 0 {
		return apperrors.ErrCategoryHasChildren
	}

	var refCount int64
	if err := s.db.Model(&models.Transaction{}).Where("category_id = ?", categoryID).Count(&refCount).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if refCount == 0 {
		if err := s.db.Model(&models.Budget{}).Where("category_id = ?", categoryID).Count(&refCount).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	if refCount > 0 {
		return apperrors.ErrCategoryInUse
	}

	if err := s.db.Delete(category).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ensureNameFree fails with ErrDuplicateCategory when another live category
// already uses name, compared case-insensitively.
func (s *categoryService) ensureNameFree(name, exceptID string) error {
	query := s.db.Model(&models.Category{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.WithMessage(apperrors.ErrDuplicateCategory, "Category with name '"+name+"' already exists")
	}
	return nil
}

// checkParent verifies parentID exists and that hanging categoryID under it
// keeps the tree acyclic.
func (s *categoryService) checkParent(categoryID, parentID string) error {
	if parentID == categoryID {
		return apperrors.ErrCategoryCycle
	}

	seen := map[string]bool{categoryID: true}
	current := parentID
	for {
		parent, err := s.GetCategoryByID(current)
		if err != nil {
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		if seen[*parent.ParentID] {
			return apperrors.ErrCategoryCycle
		}
		seen[current] = true
		current = *parent.ParentID
	}
}

// ensureCategory fails with ErrCategoryNotFound unless categoryID names a
// live category.
func ensureCategory(db *gorm.DB, categoryID string) error {
	var count int64
	if err := db.Model(&models.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.NotFound(apperrors.ErrCategoryNotFound, "Category", categoryID)
	}
	return nil
}
