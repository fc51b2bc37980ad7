package main

import (
	"log"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"commerce-backend/internal/infrastructure/email"
	"commerce-backend/internal/infrastructure/queue"
	"commerce-backend/internal/infrastructure/queue/handlers"
	"commerce-backend/pkg/container"
	"commerce-backend/pkg/logger"
)

// The worker consumes the background task queue: currently just the
// order confirmation emails the checkout enqueues.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	appContainer, err := container.NewContainer()
	if err != nil {
		log.Fatalf("failed to initialize container: %v", err)
	}
	defer appContainer.Cleanup()

	cfg := appContainer.Config

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Host,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"email":   6,
				"default": 4,
			},
		},
	)

	emailSvc := email.NewSMTPEmailService(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.From)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeOrderConfirmation, handlers.OrderConfirmationHandler(emailSvc))

	logger.Info("worker starting", map[string]interface{}{
		"queues": "email,default",
	})
	if err := srv.Run(mux); err != nil {
		log.Fatalf("worker stopped: %v", err)
	}
}
