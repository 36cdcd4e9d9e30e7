package collections

import (
	"context"
	"fmt"

	"github.com/pocketbase/pocketbase/core"

	"preventivi/logging"
)

// SeedOperator is the username of the operator created on an empty database.
const SeedOperator = "admin"

type articleDef struct {
	code        string
	description string
	unit        string
	unitPrice   float64
	vatRate     float64
}

type customerDef struct {
	name      string
	address   string
	vatNumber string
	email     string
	phone     string
}

var seedArticles = []articleDef{
	{"HW-TAB-10", "Tablet 10\" per sala, con staffa a parete", "pz", 329.00, 22},
	{"HW-STA-01", "Stampante termica per scontrini 80mm", "pz", 189.90, 22},
	{"HW-POS-15", "Terminale POS touch 15\" fanless", "pz", 749.00, 22},
	{"SW-LIC-01", "Licenza gestionale ristorazione, 1 postazione", "pz", 450.00, 22},
	{"SW-CAN-12", "Canone assistenza e aggiornamenti, 12 mesi", "anno", 240.00, 22},
	{"SRV-INST", "Installazione e configurazione in loco", "h", 45.00, 22},
	{"SRV-FORM", "Formazione personale", "h", 40.00, 22},
}

var seedCustomers = []customerDef{
	{"Trattoria Da Mario Snc", "Via Garibaldi 12, 10122 Torino", "IT01234560017", "info@damario.it", "011 5551234"},
	{"Bar Centrale Srl", "Piazza del Duomo 3, 20121 Milano", "IT09876540152", "amministrazione@barcentrale.it", "02 5559876"},
	{"Hotel Belvedere SpA", "Lungomare Vespucci 44, 47921 Rimini", "IT04567890401", "direzione@hotelbelvedere.it", "0541 555321"},
}

// Seed creates the first operator plus a demo article and customer catalog.
// It is safe to call on every startup because it returns early once any
// operator exists.
func Seed(app core.App, log *logging.Logger, password string) error {
	ctx := context.Background()

	operatorsCol, err := app.FindCollectionByNameOrId(Operators)
	if err != nil {
		return fmt.Errorf("seed: could not find operators collection: %w", err)
	}
	existing, err := app.CountRecords(operatorsCol)
	if err != nil {
		return fmt.Errorf("seed: could not count operators: %w", err)
	}
	if existing > 0 {
		return nil // already seeded
	}
	if len(password) < 8 {
		return fmt.Errorf("seed: operator password must be at least 8 characters")
	}

	log.Info(ctx, "seed: operators collection is empty, inserting seed data")

	return app.RunInTransaction(func(txApp core.App) error {
		op := core.NewRecord(operatorsCol)
		op.Set("username", SeedOperator)
		op.Set("name", "Amministratore")
		op.SetEmail(SeedOperator + "@preventivi.local")
		op.SetPassword(password)
		if err := txApp.Save(op); err != nil {
			return fmt.Errorf("seed: create operator: %w", err)
		}

		articles, err := seedCatalog(txApp, Articles, len(seedArticles), func(i int, r *core.Record) {
			a := seedArticles[i]
			r.Set("code", a.code)
			r.Set("description", a.description)
			r.Set("unit", a.unit)
			r.Set("unit_price", a.unitPrice)
			r.Set("vat_rate", a.vatRate)
		})
		if err != nil {
			return err
		}

		customers, err := seedCatalog(txApp, Customers, len(seedCustomers), func(i int, r *core.Record) {
			c := seedCustomers[i]
			r.Set("name", c.name)
			r.Set("address", c.address)
			r.Set("vat_number", c.vatNumber)
			r.Set("email", c.email)
			r.Set("phone", c.phone)
		})
		if err != nil {
			return err
		}

		log.Info(log.WithFields(ctx, map[string]any{
			"operator":  SeedOperator,
			"articles":  articles,
			"customers": customers,
		}), "seed: complete")
		return nil
	})
}

// seedCatalog fills an empty catalog collection with n records; a
// collection that already has data is left alone.
func seedCatalog(app core.App, name string, n int, fill func(i int, r *core.Record)) (int, error) {
	col, err := app.FindCollectionByNameOrId(name)
	if err != nil {
		return 0, fmt.Errorf("seed: could not find %s collection: %w", name, err)
	}
	count, err := app.CountRecords(col)
	if err != nil {
		return 0, fmt.Errorf("seed: could not count %s: %w", name, err)
	}
	if count > 0 {
		return 0, nil
	}

	for i := 0; i < n; i++ {
		r := core.NewRecord(col)
		fill(i, r)
		if err := app.Save(r); err != nil {
			return i, fmt.Errorf("seed: create %s record %d: %w", name, i, err)
		}
	}
	return n, nil
}
