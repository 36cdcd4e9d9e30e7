// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"preventivi/collections"
)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	if err := collections.Setup(app); err != nil {
		t.Fatalf("failed to set up collections: %v", err)
	}

	return app
}

// CreateTestOperator creates an operator (auth record) and returns it.
func CreateTestOperator(t *testing.T, app core.App, username, password string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId(collections.Operators)
	if err != nil {
		t.Fatalf("failed to find operators collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("username", username)
	record.Set("name", username)
	record.SetEmail(username + "@preventivi.test")
	record.SetPassword(password)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test operator: %v", err)
	}

	return record
}

// CreateTestArticle creates a catalog article and returns it.
func CreateTestArticle(t *testing.T, app core.App, code, description string, unitPrice, vatRate float64) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId(collections.Articles)
	if err != nil {
		t.Fatalf("failed to find articles collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("code", code)
	record.Set("description", description)
	record.Set("unit", "pz")
	record.Set("unit_price", unitPrice)
	record.Set("vat_rate", vatRate)

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test article: %v", err)
	}

	return record
}

// CreateTestCustomer creates a catalog customer and returns it.
func CreateTestCustomer(t *testing.T, app core.App, name string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId(collections.Customers)
	if err != nil {
		t.Fatalf("failed to find customers collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("name", name)
	record.Set("address", "Via Garibaldi 10, Torino")
	record.Set("vat_number", "IT09876543210")
	record.Set("email", "ufficio@cliente.test")

	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test customer: %v", err)
	}

	return record
}

// AssertHTMLContains checks that body contains all specified fragments.
func AssertHTMLContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected HTML to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

// AssertHTMLNotContains checks that body contains none of the fragments.
func AssertHTMLNotContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if strings.Contains(body, frag) {
			t.Errorf("expected HTML not to contain %q\nbody (first 500 chars): %s", frag, truncate(body, 500))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
