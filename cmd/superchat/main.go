package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/streamnest/SuperChat/app/repository"
	"github.com/streamnest/SuperChat/internal/pkg/cache"
	"github.com/streamnest/SuperChat/internal/pkg/database"
	"github.com/streamnest/SuperChat/internal/pkg/donation"
	"github.com/streamnest/SuperChat/internal/pkg/env"
	"github.com/streamnest/SuperChat/internal/pkg/metrics/counter"
	"github.com/streamnest/SuperChat/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Expired claims are filtered at consume time; the sweeper just keeps
	// the table small.
	sweeper := donation.NewServiceFromDB(database.GetDB(), nil)
	sweeper.StartClaimSweeper(context.Background(), time.Hour)

	// Room view counters buffer in Redis and land in the DB in batches.
	counter.StartFlusher(context.Background(), 5*time.Minute)

	// Find the project root for static docs
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/superchat to project root
		"../../../", // Fallback
	}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}
	if basePath == "" {
		panic("Could not find project root directory")
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1048576, // 1 MiB, webhook payloads are small
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
