package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/velomart/velomart/app/repository"
	"github.com/velomart/velomart/internal/pkg/cache"
	"github.com/velomart/velomart/internal/pkg/database"
	"github.com/velomart/velomart/internal/pkg/env"
	"github.com/velomart/velomart/internal/pkg/jobqueue"
	"github.com/velomart/velomart/internal/pkg/router"
)

func main() {
	app := NewApplication()

	manager := jobqueue.GetManager()
	manager.Start()

	// Graceful shutdown: stop accepting requests, then drain the queue.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Println("Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	manager.Stop()
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	app := fiber.New(fiber.Config{
		AppName:   "VeloMart",
		BodyLimit: 1 << 20, // webhook payloads are small
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	basePath := findBasePath()
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

// findBasePath locates the project root so the binary works from the repo
// root and from cmd/velomart.
func findBasePath() string {
	basePaths := []string{
		"./",
		"../../",
		"../../../",
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			return path
		}
	}
	panic("Could not find project root directory")
}
