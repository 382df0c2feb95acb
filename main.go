package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/coinkart/CoinKart/app/controllers"
	"github.com/coinkart/CoinKart/app/repository"
	apiv1 "github.com/coinkart/CoinKart/internal/api/v1"
	"github.com/coinkart/CoinKart/internal/pkg/cache"
	"github.com/coinkart/CoinKart/internal/pkg/coins"
	"github.com/coinkart/CoinKart/internal/pkg/database"
	"github.com/coinkart/CoinKart/internal/pkg/env"
	"github.com/coinkart/CoinKart/internal/pkg/jobqueue"
	metrics "github.com/coinkart/CoinKart/internal/pkg/metrics/counter"
	"github.com/coinkart/CoinKart/internal/pkg/payments"
	"github.com/coinkart/CoinKart/internal/pkg/rewards"
	"github.com/coinkart/CoinKart/internal/pkg/router"
	"github.com/coinkart/CoinKart/internal/pkg/webhook"
)

func main() {
	app := NewApplication()

	// Graceful shutdown: drain the job queue before the process exits.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		jobqueue.GetManager().Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Repositories behind the global factory
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	// Job queue carries admin alerts and webhook replays
	manager := jobqueue.GetManager()
	alerter := jobqueue.NewQueueAlerter(manager.GetQueue())

	// Payment processing pipeline
	stateMachine := payments.NewStateMachine(repos.Order, alerter)
	checkout := payments.NewCheckoutHandler(stateMachine, repos.Redemption)
	dispatcher := payments.NewDispatcher(stateMachine, checkout)

	processor := webhook.NewProcessor(repos.WebhookEvent, dispatcher, metrics.WebhookCounters{}, webhook.Secrets{
		Razorpay: env.GetEnv("RAZORPAY_WEBHOOK_SECRET", ""),
		Stripe:   env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	})

	// Reward grant engine with cached rule lookup
	ruleSource := rewards.NewCachedRuleSource(repos.Reward)
	engine := rewards.NewEngine(repos.Reward, ruleSource, coins.NewWalletClientFromEnv())

	// Controllers
	controllers.InitializeWebhookController(processor)
	controllers.InitializeRewardController(engine)

	// Background workers
	manager.SetWebhookProcessor(processor)
	manager.Start()

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1048576, // 1 MiB, gateway payloads are small
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("OPS_USER", "admin"): env.GetEnv("OPS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	specPath := "./public/docs/v1/openapi.yml"
	if err := apiv1.ValidateSpecFile(specPath); err != nil {
		log.Printf("OpenAPI document invalid, docs disabled: %v", err)
	} else {
		openAPICfg := swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}
		app.Use(swagger.New(openAPICfg))
	}

	// ROUTER
	router.InstallRouter(app)

	return app
}
