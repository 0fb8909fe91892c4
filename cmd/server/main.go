// @title           PI Case Backend API
// @version         1.0
// @description     API for a personal injury law firm: case financials, stages, the work log and document generation through a rendering webhook.
// @contact.name    Aldo Rifki Putra
// @contact.email   aldoetobex@gmail.com
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/aldoetobex/pi-case-backend/internal/auth"
	"github.com/aldoetobex/pi-case-backend/internal/cases"
	"github.com/aldoetobex/pi-case-backend/internal/casestore"
	"github.com/aldoetobex/pi-case-backend/internal/financials"
	"github.com/aldoetobex/pi-case-backend/internal/generation"
	"github.com/aldoetobex/pi-case-backend/internal/payload"
	"github.com/aldoetobex/pi-case-backend/internal/render"
	"github.com/aldoetobex/pi-case-backend/internal/storage"
	"github.com/aldoetobex/pi-case-backend/pkg/config"
	"github.com/aldoetobex/pi-case-backend/pkg/database"
	"github.com/aldoetobex/pi-case-backend/pkg/models"
)

// generationLockTTL bounds how long a crashed instance can hold a case. Live
// runs keep extending it.
const generationLockTTL = 2 * time.Minute

// mountLocalStorage serves local artifacts to signed-in staff only.
func mountLocalStorage(app *fiber.App, prefix string, local *storage.Local) {
	staff := auth.RequireRole(models.RoleAttorney, models.RoleParalegal, models.RoleAdmin)
	app.Group(prefix, auth.RequireAuth(), staff).Static("/", local.BasePath())
}

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if os.Getenv("JWT_SECRET") == "" {
		log.Error("JWT_SECRET is required")
		os.Exit(1)
	}
	auth.TokenTTL = cfg.TokenTTL
	if cfg.RenderURL == "" {
		log.Warn("RENDER_WEBHOOK_URL is not set; document generation will fail")
	}

	db := database.Init(cfg.DatabaseURL)
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}

	files, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		log.Error("storage init failed", "type", cfg.Storage.Type, "error", err)
		os.Exit(1)
	}

	// Generation engine
	opts := []generation.Option{generation.WithLogger(log)}
	if cfg.RedisAddr != "" {
		rdb, err := generation.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Error("redis init failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		opts = append(opts, generation.WithGate(generation.NewRedisGate(rdb, generationLockTTL)))
	}
	engine := generation.New(
		payload.NewBuilder(cfg.Firm, cfg.MileageRate),
		render.NewClient(cfg.RenderURL, cfg.RenderTimeout),
		files,
		casestore.New(db),
		opts...,
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
		BodyLimit:    110 * 1024 * 1024, // 10 files of 10MB plus form overhead
	})
	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	// Local storage serves its own files
	if local, ok := files.(*storage.Local); ok {
		log.Warn("local storage is for development only")
		mountLocalStorage(app, cfg.Storage.LocalBaseURL, local)
	}

	api := app.Group("/api")

	// Auth
	authH := auth.NewHandler(db)
	api.Post("/signup", authH.Signup)
	api.Post("/login", authH.Login)
	api.Get("/me", auth.RequireAuth(), authH.Me)

	staff := auth.RequireRole(models.RoleAttorney, models.RoleParalegal, models.RoleAdmin)
	attorney := auth.RequireRole(models.RoleAttorney, models.RoleAdmin)

	// Cases
	caseH := cases.NewHandler(db, files, engine, cfg.MileageRate)
	api.Get("/stages", auth.RequireAuth(), caseH.Stages)
	api.Get("/document-types", auth.RequireAuth(), caseH.DocumentTypes)
	api.Get("/files/:fileID/signed-url", auth.RequireAuth(), staff, caseH.SignedDownloadURL)
	api.Get("/cases", auth.RequireAuth(), staff, caseH.List)

	api.Put("/cases/:id/stage", auth.RequireAuth(), staff, caseH.UpdateStage)
	api.Get("/cases/:id/worklog", auth.RequireAuth(), staff, caseH.WorkLog)
	api.Get("/cases/:id/documents", auth.RequireAuth(), staff, caseH.ListDocuments)
	api.Post("/cases/:id/files", auth.RequireAuth(), staff, caseH.UploadFile)
	api.Post("/cases/:id/generate", auth.RequireAuth(), staff, caseH.Generate)
	api.Post("/cases/:id/payload-preview", auth.RequireAuth(), staff, caseH.PreviewPayload)

	// Financials
	finH := financials.NewHandler(db)
	api.Get("/cases/:id/bills", auth.RequireAuth(), staff, finH.ListBills)
	api.Post("/cases/:id/bills", auth.RequireAuth(), staff, finH.CreateBill)
	api.Put("/cases/:id/bills/:billID", auth.RequireAuth(), staff, finH.AmendBill)
	api.Get("/cases/:id/settlement", auth.RequireAuth(), staff, finH.GetSettlement)
	api.Put("/cases/:id/settlement", auth.RequireAuth(), attorney, finH.SaveSettlement)
	api.Put("/cases/:id/general-damages", auth.RequireAuth(), attorney, finH.SaveGeneralDamages)

	// Parameterized routes last
	api.Get("/cases/:id", auth.RequireAuth(), staff, caseH.GetDetail)

	log.Info("server running", "port", cfg.Port, "env", cfg.AppEnv, "storage", cfg.Storage.Type)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
