package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/trevall/carfolio/app/repository"
	"github.com/trevall/carfolio/internal/pkg/cache"
	"github.com/trevall/carfolio/internal/pkg/database"
	"github.com/trevall/carfolio/internal/pkg/env"
	"github.com/trevall/carfolio/internal/pkg/metrics/counter"
	"github.com/trevall/carfolio/internal/pkg/router"
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

	app := fiber.New(fiber.Config{
		BodyLimit: 104857600, // 100 MiB, sources come straight off the camera
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// Flush buffered activity counters to the database periodically.
	go func() {
		for range time.Tick(time.Minute) {
			if err := counter.FlushAll(); err != nil {
				log.Printf("counter flush failed: %v", err)
			}
		}
	}()

	// ROUTER
	router.InstallRouter(app)

	return app
}
