package routes

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fuelbank/fuel_support/internal/client"
	"github.com/fuelbank/fuel_support/internal/config"
	"github.com/fuelbank/fuel_support/internal/fuelrequest"
	"github.com/fuelbank/fuel_support/internal/issuance"
	"github.com/fuelbank/fuel_support/internal/middleware"
	"github.com/fuelbank/fuel_support/internal/notify"
	"github.com/fuelbank/fuel_support/internal/storage"
	"github.com/fuelbank/fuel_support/internal/upload"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !isDev(d.Cfg.AppEnv) {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Repositories
	var (
		clientRepo  client.Repository
		requestRepo fuelrequest.Repository
		recordRepo  notify.RecordRepository
	)
	if d.DB != nil {
		clientRepo = client.NewPostgresRepository(d.DB)
		requestRepo = fuelrequest.NewPostgresRepository(d.DB)
		recordRepo = notify.NewPostgresRecordRepository(d.DB)
	} else {
		clientRepo = client.NewMemoryRepository()
		requestRepo = fuelrequest.NewMemoryRepository()
		recordRepo = notify.NewMemoryRecordRepository()
	}

	store, err := storage.NewDiskStore(d.Cfg.UploadDir)
	if err != nil {
		return err
	}

	// Notifier: mode is fixed at config load, immutable for the process.
	var notifier notify.Notifier
	if d.Cfg.SMSMode == config.SMSModeTwilio {
		notifier = notify.NewTwilioNotifier(d.Cfg.TwilioAccountSID, d.Cfg.TwilioAuthToken, d.Cfg.TwilioFromNumber)
	} else {
		notifier = notify.NewSimulatedNotifier(d.Logger)
	}

	// Services and handlers
	clientSvc := client.NewService(clientRepo)
	issueSvc := issuance.NewService(clientSvc, requestRepo, recordRepo, notifier, issuance.Config{
		BaseURL:       d.Cfg.BaseURL,
		LinkTTL:       d.Cfg.LinkTTL,
		FoodBankName:  d.Cfg.FoodBankName,
		FoodBankPhone: d.Cfg.FoodBankPhone,
	}, d.Logger)
	uploadSvc := upload.NewService(requestRepo, store, d.Logger)

	clientHandler := client.NewHandler(clientSvc)
	issueHandler := issuance.NewHandler(issueSvc, requestRepo)
	uploadHandler := upload.NewHandler(uploadSvc, clientSvc, d.Logger)

	// Public upload routes; clients reach these from the SMS link with no
	// credentials beyond the token itself.
	RegisterUploadRoutes(app, uploadHandler, middleware.UploadRateLimit(d.Cache, d.Cfg.UploadRatePerMin))

	// Staff API
	api := app.Group("/api/v1", middleware.StaffKey(d.Cfg.StaffKeyHash))
	if d.Cache != nil {
		api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterClientRoutes(api, clientHandler, issueHandler, recordRepo)
	RegisterRequestRoutes(api, issueHandler)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
