package main

import (
	"context"
	"log"

	"book-agent-be/internal/bootstrap"
	"book-agent-be/internal/config"
	"book-agent-be/internal/server"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	// 3. Start Background Services
	go func() {
		log.Println("Background: Starting Event Recorder...")
		if err := container.EventRecorder.Consume(context.Background()); err != nil {
			log.Printf("Background Recorder Error: %v", err)
		}
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
