package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "INCOME"
	CategoryTypeExpense CategoryType = "EXPENSE"
	CategoryTypeSaving  CategoryType = "SAVING"
)

// Valid reports whether t is one of the known category types.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryTypeIncome, CategoryTypeExpense, CategoryTypeSaving:
		return true
	}
	return false
}

// Category represents a transaction category. Categories form a tree through
// ParentID.
type Category struct {
	Base
	Name        string       `gorm:"not null;index" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description *string      `json:"description,omitempty"`
	ParentID    *string      `gorm:"type:uuid;index" json:"parent_id,omitempty"`
}
