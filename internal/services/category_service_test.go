package services

import (
	"testing"

	"finmanager/internal/models"
	"finmanager/internal/pagination"
	"finmanager/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestCreateCategory(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		cat, err := svc.CreateCategory("Groceries", models.CategoryTypeExpense, strPtr("Food shopping"), nil)
		testutil.AssertNoError(t, err)

		if cat.ID == "" {
			t.Fatal("expected category ID to be set")
		}
		if cat.Name != "Groceries" {
			t.Errorf("expected name Groceries, got %s", cat.Name)
		}
		if cat.Type != models.CategoryTypeExpense {
			t.Errorf("expected type EXPENSE, got %s", cat.Type)
		}
		if cat.Description == nil || *cat.Description != "Food shopping" {
			t.Errorf("expected description 'Food shopping', got %v", cat.Description)
		}
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		_, err := svc.CreateCategory("Food", models.CategoryTypeExpense, nil, nil)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateCategory("Food", models.CategoryTypeExpense, nil, nil)
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("duplicate_name_ignores_case", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		_, err := svc.CreateCategory("Food", models.CategoryTypeExpense, nil, nil)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateCategory("FOOD", models.CategoryTypeIncome, nil, nil)
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("name_reusable_after_delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		cat, err := svc.CreateCategory("Food", models.CategoryTypeExpense, nil, nil)
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, svc.DeleteCategory(cat.ID))

		_, err = svc.CreateCategory("Food", models.CategoryTypeExpense, nil, nil)
		testutil.AssertNoError(t, err)
	})

	t.Run("with_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		parent, err := svc.CreateCategory("Food", models.CategoryTypeExpense, nil, nil)
		testutil.AssertNoError(t, err)

		child, err := svc.CreateCategory("Snacks", models.CategoryTypeExpense, nil, &parent.ID)
		testutil.AssertNoError(t, err)

		if child.ParentID == nil || *child.ParentID != parent.ID {
			t.Errorf("expected parent ID %s, got %v", parent.ID, child.ParentID)
		}
	})

	t.Run("invalid_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		_, err := svc.CreateCategory("Orphan", models.CategoryTypeExpense, nil, strPtr("0190a6e2-7c3b-7d4e-8f00-123456789abc"))
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		_, err := svc.CreateCategory("   ", models.CategoryTypeExpense, nil, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("invalid_type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		_, err := svc.CreateCategory("Misc", models.CategoryType("TRANSFER"), nil, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestListCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)

	testutil.CreateTestCategoryNamed(t, db, "Rent", models.CategoryTypeExpense)
	testutil.CreateTestCategoryNamed(t, db, "Coffee", models.CategoryTypeExpense)
	testutil.CreateTestCategoryNamed(t, db, "Salary", models.CategoryTypeIncome)

	t.Run("paginated", func(t *testing.T) {
		result, err := svc.ListCategories(pagination.PageRequest{Page: 1, PageSize: 2})
		testutil.AssertNoError(t, err)

		if result.TotalItems != 3 {
			t.Errorf("expected 3 total items, got %d", result.TotalItems)
		}
		if len(result.Data) != 2 {
			t.Fatalf("expected 2 items on the page, got %d", len(result.Data))
		}
		if result.Data[0].Name != "Coffee" {
			t.Errorf("expected categories ordered by name, first was %s", result.Data[0].Name)
		}
		if result.TotalPages != 2 {
			t.Errorf("expected 2 pages, got %d", result.TotalPages)
		}
	})

	t.Run("by_type", func(t *testing.T) {
		income, err := svc.GetCategoriesByType(models.CategoryTypeIncome)
		testutil.AssertNoError(t, err)
		if len(income) != 1 || income[0].Name != "Salary" {
			t.Errorf("expected only Salary, got %+v", income)
		}

		_, err = svc.GetCategoriesByType("bogus")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("all", func(t *testing.T) {
		all, err := svc.GetAllCategories()
		testutil.AssertNoError(t, err)
		if len(all) != 3 {
			t.Errorf("expected 3 categories, got %d", len(all))
		}
	})
}

func TestGetCategoryByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		cat := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		got, err := svc.GetCategoryByID(cat.ID)
		testutil.AssertNoError(t, err)
		if got.Name != cat.Name {
			t.Errorf("expected %s, got %s", cat.Name, got.Name)
		}
	})

	t.Run("not_found_names_kind_and_id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		_, err := svc.GetCategoryByID("missing-id")
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
		if err.Error() != "Category not found with id: missing-id" {
			t.Errorf("unexpected message %q", err.Error())
		}
	})
}

func TestFindCategoryByName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewCategoryService(db)
	cat := testutil.CreateTestCategoryNamed(t, db, "Groceries", models.CategoryTypeExpense)

	got, err := svc.FindCategoryByName("gROCERIES")
	testutil.AssertNoError(t, err)
	if got.ID != cat.ID {
		t.Errorf("expected %s, got %s", cat.ID, got.ID)
	}

	_, err = svc.FindCategoryByName("Travel")
	testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
}

func TestUpdateCategory(t *testing.T) {
	t.Run("field_diff", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		cat := testutil.CreateTestCategoryNamed(t, db, "Food", models.CategoryTypeExpense)

		updated, err := svc.UpdateCategory(cat.ID, CategoryUpdate{Description: strPtr("Everything edible")})
		testutil.AssertNoError(t, err)

		if updated.Name != "Food" {
			t.Errorf("expected name to stay Food, got %s", updated.Name)
		}
		if updated.Description == nil || *updated.Description != "Everything edible" {
			t.Errorf("expected description to change, got %v", updated.Description)
		}
	})

	t.Run("rename_to_existing", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		testutil.CreateTestCategoryNamed(t, db, "Food", models.CategoryTypeExpense)
		other := testutil.CreateTestCategoryNamed(t, db, "Travel", models.CategoryTypeExpense)

		_, err := svc.UpdateCategory(other.ID, CategoryUpdate{Name: strPtr("food")})
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("rename_case_only", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		cat := testutil.CreateTestCategoryNamed(t, db, "food", models.CategoryTypeExpense)

		updated, err := svc.UpdateCategory(cat.ID, CategoryUpdate{Name: strPtr("Food")})
		testutil.AssertNoError(t, err)
		if updated.Name != "Food" {
			t.Errorf("expected Food, got %s", updated.Name)
		}
	})

	t.Run("self_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		cat := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		_, err := svc.UpdateCategory(cat.ID, CategoryUpdate{ParentID: &cat.ID})
		testutil.AssertAppError(t, err, "CATEGORY_CYCLE")
	})

	t.Run("ancestor_cycle", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		root, err := svc.CreateCategory("Root", models.CategoryTypeExpense, nil, nil)
		testutil.AssertNoError(t, err)
		mid, err := svc.CreateCategory("Mid", models.CategoryTypeExpense, nil, &root.ID)
		testutil.AssertNoError(t, err)
		leaf, err := svc.CreateCategory("Leaf", models.CategoryTypeExpense, nil, &mid.ID)
		testutil.AssertNoError(t, err)

		_, err = svc.UpdateCategory(root.ID, CategoryUpdate{ParentID: &leaf.ID})
		testutil.AssertAppError(t, err, "CATEGORY_CYCLE")
	})

	t.Run("detach_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		parent, err := svc.CreateCategory("Food", models.CategoryTypeExpense, nil, nil)
		testutil.AssertNoError(t, err)
		child, err := svc.CreateCategory("Snacks", models.CategoryTypeExpense, nil, &parent.ID)
		testutil.AssertNoError(t, err)

		updated, err := svc.UpdateCategory(child.ID, CategoryUpdate{ParentID: strPtr("")})
		testutil.AssertNoError(t, err)
		if updated.ParentID != nil {
			t.Errorf("expected parent to be cleared, got %v", *updated.ParentID)
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		_, err := svc.UpdateCategory("missing", CategoryUpdate{Name: strPtr("x")})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestDeleteCategory(t *testing.T) {
	t.Run("unused", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		cat := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		testutil.AssertNoError(t, svc.DeleteCategory(cat.ID))

		_, err := svc.GetCategoryByID(cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("has_children", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)

		parent, err := svc.CreateCategory("Food", models.CategoryTypeExpense, nil, nil)
		testutil.AssertNoError(t, err)
		_, err = svc.CreateCategory("Snacks", models.CategoryTypeExpense, nil, &parent.ID)
		testutil.AssertNoError(t, err)

		err = svc.DeleteCategory(parent.ID)
		testutil.AssertAppError(t, err, "CATEGORY_HAS_CHILDREN")
	})

	t.Run("used_by_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		cat := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)
		testutil.CreateTestTransaction(t, db, cat.ID, models.TransactionTypeExpense, "10", testutil.Day(2024, 1, 1), nil)

		err := svc.DeleteCategory(cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_IN_USE")
	})

	t.Run("used_by_budgets", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCategoryService(db)
		cat := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, cat.ID, "100", testutil.Day(2024, 1, 1), testutil.Day(2024, 1, 31))

		err := svc.DeleteCategory(cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_IN_USE")
	})
}
