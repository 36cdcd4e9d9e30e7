package collections_test

import (
	"testing"

	"preventivi/collections"
	"preventivi/logging"
	"preventivi/testhelpers"
)

func TestSeed_CreatesData(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app, logging.Nop(), "password123"); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	op, err := app.FindFirstRecordByData(collections.Operators, "username", collections.SeedOperator)
	if err != nil {
		t.Fatalf("seed operator not found: %v", err)
	}
	if !op.ValidatePassword("password123") {
		t.Error("seed operator password does not validate")
	}

	articles, _ := app.FindAllRecords(collections.Articles)
	if len(articles) == 0 {
		t.Error("expected seed articles to be created")
	}
	customers, _ := app.FindAllRecords(collections.Customers)
	if len(customers) == 0 {
		t.Error("expected seed customers to be created")
	}
}

func TestSeed_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app, logging.Nop(), "password123"); err != nil {
		t.Fatalf("first Seed() error: %v", err)
	}
	first, _ := app.FindAllRecords(collections.Articles)

	if err := collections.Seed(app, logging.Nop(), "password123"); err != nil {
		t.Fatalf("second Seed() error: %v", err)
	}
	second, _ := app.FindAllRecords(collections.Articles)
	if len(first) != len(second) {
		t.Errorf("articles after second seed = %d, want %d", len(second), len(first))
	}

	ops, _ := app.FindAllRecords(collections.Operators)
	if len(ops) != 1 {
		t.Errorf("expected 1 operator, got %d", len(ops))
	}
}

func TestSeed_SkipsWhenOperatorsExist(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestOperator(t, app, "mario", "password123")

	if err := collections.Seed(app, logging.Nop(), "password123"); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}
	articles, _ := app.FindAllRecords(collections.Articles)
	if len(articles) != 0 {
		t.Errorf("expected no seed data when an operator exists, got %d articles", len(articles))
	}
}

func TestSeed_KeepsExistingCatalog(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestArticle(t, app, "OWN-1", "Articolo esistente", 10, 22)

	if err := collections.Seed(app, logging.Nop(), "password123"); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}
	articles, _ := app.FindAllRecords(collections.Articles)
	if len(articles) != 1 {
		t.Errorf("existing catalog must not be extended, got %d articles", len(articles))
	}
	customers, _ := app.FindAllRecords(collections.Customers)
	if len(customers) == 0 {
		t.Error("empty customer catalog should still be seeded")
	}
}

func TestSeed_ShortPassword(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app, logging.Nop(), "short"); err == nil {
		t.Fatal("expected error for a short seed password")
	}
	ops, _ := app.FindAllRecords(collections.Operators)
	if len(ops) != 0 {
		t.Errorf("expected no operator, got %d", len(ops))
	}
}
