package collections_test

import (
	"testing"

	"preventivi/collections"
	"preventivi/logging"
	"preventivi/testhelpers"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

func testDefaults(operatorID string) (any, int) {
	return map[string]any{"companyName": "Default " + operatorID, "quoteNumberPrefix": "2024-"}, 1
}

func TestMigrateDefaultSettings_CreatesDefaults(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	op := testhelpers.CreateTestOperator(t, app, "mario", "password123")

	if err := collections.MigrateDefaultSettings(app, logging.Nop(), testDefaults); err != nil {
		t.Fatalf("MigrateDefaultSettings() error: %v", err)
	}

	rec, err := app.FindFirstRecordByFilter(collections.Settings, "operator = {:op}", map[string]any{"op": op.Id})
	if err != nil {
		t.Fatalf("expected settings for operator: %v", err)
	}
	if rec.GetInt("next_quote_number") != 1 {
		t.Errorf("next_quote_number = %d, want 1", rec.GetInt("next_quote_number"))
	}
	var data map[string]any
	if err := rec.UnmarshalJSONField("data", &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["companyName"] != "Default "+op.Id {
		t.Errorf("companyName = %v", data["companyName"])
	}
}

func TestMigrateDefaultSettings_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestOperator(t, app, "mario", "password123")
	testhelpers.CreateTestOperator(t, app, "lucia", "password123")

	for i := 0; i < 2; i++ {
		if err := collections.MigrateDefaultSettings(app, logging.Nop(), testDefaults); err != nil {
			t.Fatalf("run %d error: %v", i+1, err)
		}
	}

	all, err := app.FindAllRecords(collections.Settings)
	if err != nil {
		t.Fatalf("query error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 settings records for 2 operators, got %d", len(all))
	}
}

func TestBackfillQuoteColumns(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	op := testhelpers.CreateTestOperator(t, app, "mario", "password123")

	col, _ := app.FindCollectionByNameOrId(collections.Quotes)
	rec := core.NewRecord(col)
	rec.Set("operator", op.Id)
	rec.Set("data", types.JSONRaw(`{"number":"2024-3","date":"2024-03-05T00:00:00Z","total":122,"customer":{"name":"Rossi SpA"}}`))
	if err := app.Save(rec); err != nil {
		t.Fatalf("save quote: %v", err)
	}

	if err := collections.BackfillQuoteColumns(app, logging.Nop()); err != nil {
		t.Fatalf("BackfillQuoteColumns() error: %v", err)
	}

	got, err := app.FindRecordById(collections.Quotes, rec.Id)
	if err != nil {
		t.Fatalf("reload quote: %v", err)
	}
	if got.GetString("number") != "2024-3" {
		t.Errorf("number = %q, want 2024-3", got.GetString("number"))
	}
	if got.GetString("customer_name") != "Rossi SpA" {
		t.Errorf("customer_name = %q", got.GetString("customer_name"))
	}
	if got.GetFloat("total") != 122 {
		t.Errorf("total = %v, want 122", got.GetFloat("total"))
	}
	if got.GetDateTime("date").IsZero() {
		t.Error("date should be backfilled")
	}
}

func TestBackfillQuoteColumns_NothingToDo(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	if err := collections.BackfillQuoteColumns(app, logging.Nop()); err != nil {
		t.Fatalf("BackfillQuoteColumns() error: %v", err)
	}
}
