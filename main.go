package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cobra"

	"preventivi/collections"
	"preventivi/config"
	"preventivi/handlers"
	"preventivi/logging"
	"preventivi/remotestore"
	"preventivi/services"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Options{
		ServiceName: "preventivi",
		Level:       logging.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := context.Background()

	app := pocketbase.New()

	var store services.Store
	if cfg.Remote() {
		remote, err := remotestore.Open(cfg.Store.DBDriver, cfg.Store.DBDSN)
		if err != nil {
			logger.Error(ctx, "failed to open remote store", err)
			os.Exit(1)
		}
		app.OnTerminate().BindFunc(func(te *core.TerminateEvent) error {
			if err := remote.Close(); err != nil {
				logger.Error(ctx, "failed to close remote store", err)
			}
			return te.Next()
		})
		store = remote
	} else {
		store = services.NewRecordStore(app)
	}

	loader := services.NewImageLoader(cfg.App.StaticDir, cfg.Images.FetchTimeout, cfg.Images.UploadMaxBytes)
	deps := &handlers.Deps{
		Store:    store,
		Renderer: services.NewQuoteRenderer(loader),
		Ingester: services.NewImageIngester(cfg.Images.UploadMaxBytes, cfg.Images.MaxDimension),
		Log:      logger,
		Now:      time.Now,
	}

	// Create collections and seed data on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if err := collections.Setup(app); err != nil {
			return fmt.Errorf("setup collections: %w", err)
		}
		if cfg.App.Seed {
			if err := collections.Seed(app, logger, cfg.App.SeedPassword); err != nil {
				logger.Warn(logger.WithField(ctx, "error", err.Error()), "seed data failed")
			}
		}
		if err := collections.MigrateDefaultSettings(app, logger, defaultSettings); err != nil {
			logger.Error(ctx, "default settings migration failed", err)
		}
		if err := collections.BackfillQuoteColumns(app, logger); err != nil {
			logger.Error(ctx, "quote column backfill failed", err)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		registerRoutes(se, deps)

		// the editor front-end and the root-relative images quotes refer to
		se.Router.GET("/{path...}", apis.Static(os.DirFS(cfg.App.StaticDir), true))
		return se.Next()
	})

	app.Cron().MustAdd("purge_trash", cfg.Trash.PurgeSchedule, func() {
		n, err := services.PurgeExpiredTrash(ctx, store, cfg.Trash.Retention, time.Now())
		if err != nil {
			logger.Error(ctx, "trash purge failed", err)
			return
		}
		if n > 0 {
			logger.Info(logger.WithField(ctx, "purged", n), "trash purged")
		}
	})

	app.RootCmd.AddCommand(migrateRemoteCommand(app, cfg, logger))

	if err := app.Start(); err != nil {
		logger.Error(ctx, "server stopped", err)
		os.Exit(1)
	}
}

func defaultSettings(operatorID string) (any, int) {
	s := services.DefaultSettings(operatorID, time.Now())
	return s, s.NextQuoteNumber
}

func registerRoutes(se *core.ServeEvent, d *handlers.Deps) {
	se.Router.BindFunc(handlers.RequestContext(d.Log))

	se.Router.POST("/api/login", handlers.HandleLogin(d))

	api := se.Router.Group("/api")
	api.BindFunc(handlers.RequireOperator())

	// ── Editor ───────────────────────────────────────────────
	api.GET("/dashboard", handlers.HandleDashboard(d))
	api.GET("/editor", handlers.HandleEditor(d))
	api.POST("/quotes/recalculate", handlers.HandleQuoteRecalculate(d))
	api.POST("/quotes/lines", handlers.HandleQuoteLines(d))
	api.POST("/quotes/preview", handlers.HandleQuotePreview(d))
	api.POST("/quotes/pdf", handlers.HandleQuotePDF(d))

	// ── Quotes ───────────────────────────────────────────────
	api.GET("/quotes", handlers.HandleQuoteList(d))
	api.GET("/quotes/export", handlers.HandleQuoteExportExcel(d))
	api.POST("/quotes", handlers.HandleQuoteCreate(d))
	api.GET("/quotes/{id}", handlers.HandleQuoteGet(d))
	api.PUT("/quotes/{id}", handlers.HandleQuoteUpdate(d))
	api.DELETE("/quotes/{id}", handlers.HandleQuoteTrash(d))
	api.GET("/quotes/{id}/pdf", handlers.HandleSavedQuotePDF(d))

	// ── Trash ────────────────────────────────────────────────
	api.GET("/trash", handlers.HandleTrashList(d))
	api.POST("/trash/{id}/restore", handlers.HandleTrashRestore(d))
	api.DELETE("/trash/{id}", handlers.HandleTrashDelete(d))

	// ── Catalog ──────────────────────────────────────────────
	api.GET("/articles", handlers.HandleArticleList(d))
	api.GET("/articles/template", handlers.HandleArticleTemplate(d))
	api.POST("/articles/import", handlers.HandleArticleImport(d))
	api.GET("/customers", handlers.HandleCustomerList(d))
	api.POST("/customers", handlers.HandleCustomerSave(d))
	api.GET("/customers/{id}", handlers.HandleCustomerGet(d))
	api.PUT("/customers/{id}", handlers.HandleCustomerSave(d))

	// ── Images ───────────────────────────────────────────────
	api.POST("/images", handlers.HandleImageUpload(d))

	// ── Settings and operators ───────────────────────────────
	// /api/settings belongs to PocketBase itself
	api.GET("/operator/settings", handlers.HandleSettingsGet(d))
	api.PUT("/operator/settings", handlers.HandleSettingsSave(d))
	api.GET("/operators", handlers.HandleOperatorList(d))
	api.POST("/operators", handlers.HandleOperatorCreate(d))
	api.DELETE("/operators/{id}", handlers.HandleOperatorDelete(d))
}

// migrateRemoteCommand copies one operator's data from the embedded
// database into the remote store configured through the environment.
func migrateRemoteCommand(app *pocketbase.PocketBase, cfg *config.Config, log *logging.Logger) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "migrate-remote",
		Short: "Copy an operator's quotes, catalog and settings to the remote database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.Remote() {
				return fmt.Errorf("set %s_STORE=remote and %s_DB_DSN first", config.EnvPrefix, config.EnvPrefix)
			}
			if err := collections.Setup(app); err != nil {
				return fmt.Errorf("setup collections: %w", err)
			}

			op, err := app.FindFirstRecordByData(collections.Operators, "username", username)
			if err != nil {
				return fmt.Errorf("operator %q not found: %w", username, err)
			}

			remote, err := remotestore.Open(cfg.Store.DBDriver, cfg.Store.DBDSN)
			if err != nil {
				return err
			}
			defer remote.Close()

			ctx := log.WithOperator(cmd.Context(), op.Id)
			sess := services.Session{OperatorID: op.Id, Username: username}
			report, err := services.MigrateData(ctx, services.NewRecordStore(app), remote, sess)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", username, err)
			}

			log.Info(log.WithFields(ctx, map[string]any{
				"customers": report.Customers,
				"articles":  report.Articles,
				"quotes":    report.Quotes,
				"trashed":   report.Trashed,
			}), "migrate-remote: complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "operator", collections.SeedOperator, "username of the operator to copy")
	return cmd
}
