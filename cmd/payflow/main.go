package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"golang.org/x/crypto/bcrypt"

	"payflow/internal/config"
	"payflow/internal/http/handlers"
	applog "payflow/internal/log"
	"payflow/internal/repos"
	"payflow/internal/wompi"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			mw := io.MultiWriter(os.Stdout, f)
			log.SetOutput(mw)
		}
	}

	// Missing gateway credentials are a startup failure, never a
	// mid-transaction one.
	gateway, err := wompi.NewClient(wompi.Config{
		BaseURL:      cfg.WompiURL,
		PublicKey:    cfg.WompiPublicKey,
		PrivateKey:   cfg.WompiPrivateKey,
		IntegrityKey: cfg.WompiIntegrityKey,
	}, nil)
	if err != nil {
		log.Fatal(err)
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	var adminHash []byte
	if cfg.AdminKey != "" {
		adminHash, err = bcrypt.GenerateFromPassword([]byte(cfg.AdminKey), 12)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		log.Println("[warn] ADMIN_KEY not set; status updates are unauthenticated")
	}

	// Background status polls stop when the process is told to.
	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := html.New("./web/templates", ".html")

	app := fiber.New(fiber.Config{
		Views: engine,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal server error",
			})
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(cors.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
	}))

	deps := handlers.NewDeps(db, cfg, gateway, baseCtx)

	app.Get("/products", deps.ProductHandler.List)
	app.Get("/products/:id", deps.ProductHandler.Detail)

	payments := app.Group("/payments")
	payments.Get("/acceptance-token", deps.PaymentHandler.AcceptanceToken)
	// Card charges get a tighter budget than browsing.
	payments.Post("/pay", limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.pay.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}), deps.PaymentHandler.Pay)

	app.Post("/transactions", deps.TransactionHandler.Create)
	app.Get("/transactions/:id", deps.TransactionHandler.Get)
	app.Patch("/transactions/:id/status", handlers.RequireAdminKey(adminHash), deps.TransactionHandler.UpdateStatus)

	app.Get("/checkout/:id", deps.TransactionHandler.StatusPage)

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	go func() {
		<-baseCtx.Done()
		log.Println("[shutdown] draining")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
