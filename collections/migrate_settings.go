package collections

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"

	"preventivi/logging"
)

// DefaultSettingsFunc returns the initial settings document for an operator
// and the counter the first quote should use.
type DefaultSettingsFunc func(operatorID string) (data any, nextNumber int)

// MigrateDefaultSettings creates a settings record for every operator that
// is missing one. Safe to call on every startup.
func MigrateDefaultSettings(app core.App, log *logging.Logger, defaults DefaultSettingsFunc) error {
	operatorsCol, err := app.FindCollectionByNameOrId(Operators)
	if err != nil {
		return fmt.Errorf("migrate_settings: could not find operators collection: %w", err)
	}

	settingsCol, err := app.FindCollectionByNameOrId(Settings)
	if err != nil {
		return fmt.Errorf("migrate_settings: could not find settings collection: %w", err)
	}

	operators, err := app.FindAllRecords(operatorsCol)
	if err != nil {
		return fmt.Errorf("migrate_settings: could not query operators: %w", err)
	}

	created := 0
	for _, op := range operators {
		_, err := app.FindFirstRecordByFilter(settingsCol, "operator = {:op}", map[string]any{"op": op.Id})
		if err == nil {
			continue
		}

		data, next := defaults(op.Id)
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("migrate_settings: encode defaults: %w", err)
		}
		if next < 1 {
			next = 1
		}

		rec := core.NewRecord(settingsCol)
		rec.Set("operator", op.Id)
		rec.Set("next_quote_number", next)
		rec.Set("data", types.JSONRaw(raw))
		if err := app.Save(rec); err != nil {
			log.Error(log.WithOperator(context.Background(), op.Id), "migrate_settings: failed to create settings", err)
			continue
		}
		created++
	}

	if created > 0 {
		log.Info(log.WithField(context.Background(), "created", created), "migrate_settings: default settings created")
	}
	return nil
}
