package collections

import (
	"fmt"

	"github.com/pocketbase/pocketbase/core"
)

// Collection names used by the embedded store.
const (
	Operators = "operators"
	Settings  = "settings"
	Quotes    = "quotes"
	Articles  = "articles"
	Customers = "customers"
)

// jsonMaxSize bounds the JSON columns. Quotes and settings embed images as
// data URLs, so the limit is generous.
const jsonMaxSize = 32 << 20

// Setup creates the operators, settings, quotes, articles and customers
// collections when they are missing. It is safe to call on every start.
func Setup(app core.App) error {
	operators, err := ensureCollection(app, Operators, core.CollectionTypeAuth, func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "username", Required: true, Max: 100})
		c.Fields.Add(&core.TextField{Name: "name", Max: 200})
		c.PasswordAuth.Enabled = true
		c.PasswordAuth.IdentityFields = []string{"username"}
		c.AddIndex("idx_operators_username", true, "username", "")
	})
	if err != nil {
		return err
	}

	if _, err := ensureCollection(app, Settings, core.CollectionTypeBase, func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "operator",
			Required:      true,
			CollectionId:  operators.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.NumberField{Name: "next_quote_number", OnlyInt: true})
		c.Fields.Add(&core.JSONField{Name: "data", MaxSize: jsonMaxSize})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_settings_operator", true, "operator", "")
	}); err != nil {
		return err
	}

	if _, err := ensureCollection(app, Quotes, core.CollectionTypeBase, func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "operator",
			Required:      true,
			CollectionId:  operators.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "number", Max: 100})
		c.Fields.Add(&core.TextField{Name: "customer_name", Max: 500})
		c.Fields.Add(&core.DateField{Name: "date"})
		c.Fields.Add(&core.NumberField{Name: "total"})
		c.Fields.Add(&core.JSONField{Name: "data", MaxSize: jsonMaxSize})
		c.Fields.Add(&core.DateField{Name: "deleted_at"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_quotes_operator_deleted", false, "operator, deleted_at", "")
	}); err != nil {
		return err
	}

	if _, err := ensureCollection(app, Articles, core.CollectionTypeBase, func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "code", Required: true, Max: 100})
		c.Fields.Add(&core.TextField{Name: "description", Required: true, Max: 2000})
		c.Fields.Add(&core.TextField{Name: "unit", Max: 50})
		c.Fields.Add(&core.NumberField{Name: "unit_price"})
		c.Fields.Add(&core.NumberField{Name: "vat_rate"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_articles_code", true, "code", "")
	}); err != nil {
		return err
	}

	if _, err := ensureCollection(app, Customers, core.CollectionTypeBase, func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true, Max: 500})
		c.Fields.Add(&core.TextField{Name: "address", Max: 1000})
		c.Fields.Add(&core.TextField{Name: "vat_number", Max: 50})
		c.Fields.Add(&core.TextField{Name: "email", Max: 200})
		c.Fields.Add(&core.TextField{Name: "phone", Max: 50})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	}); err != nil {
		return err
	}

	return nil
}

// ensureCollection returns the named collection, creating a collection of
// the given type with addFields when it does not exist yet.
func ensureCollection(
	app core.App,
	name string,
	kind string,
	addFields func(*core.Collection),
) (*core.Collection, error) {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		return existing, nil
	}

	collection := core.NewCollection(kind, name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		return nil, fmt.Errorf("create collection %q: %w", name, err)
	}
	return collection, nil
}
