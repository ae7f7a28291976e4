package application

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/psds-microservice/support-chat-service/internal/auth"
	"github.com/psds-microservice/support-chat-service/internal/config"
	"github.com/psds-microservice/support-chat-service/internal/database"
	"github.com/psds-microservice/support-chat-service/internal/handler"
	"github.com/psds-microservice/support-chat-service/internal/hub"
	"github.com/psds-microservice/support-chat-service/internal/kafka"
	"github.com/psds-microservice/support-chat-service/internal/lookup"
	"github.com/psds-microservice/support-chat-service/internal/ratelimit"
	"github.com/psds-microservice/support-chat-service/internal/router"
	"github.com/psds-microservice/support-chat-service/internal/service"
)

// API приложение: HTTP сервер с REST, WebSocket-подписками и прокси
// identity-провайдера (режим api).
type API struct {
	cfg     *config.Config
	httpSrv *http.Server
	events  *kafka.Producer
	liveHub *hub.Hub
}

// NewAPI создаёт приложение для режима api.
func NewAPI(cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	userSvc := service.NewUserService(db)
	messageSvc := service.NewMessageService(db, cfg.MessageMaxBytes)
	adminSvc := service.NewAdminService(db, cfg.AdminLimit)
	logSvc := service.NewLogService(db)

	events := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicEvents)
	sessions := auth.NewSessionStore(cfg.SessionTTL)
	liveHub := hub.New(messageSvc.ListByTransaction, 3, 250*time.Millisecond)
	limiter := ratelimit.NewPerKey(cfg.MessageRatePerMin)
	lookupClient := lookup.NewClient(cfg.LookupBaseURL, cfg.BotToken)

	if cfg.BotToken == "" {
		log.Println("lookup: BOT_TOKEN not set, every /lookup request will answer 500")
	}

	h := router.New(router.Deps{
		Users:    handler.NewUserHandler(userSvc, messageSvc, logSvc, events, liveHub),
		Messages: handler.NewMessageHandler(messageSvc, limiter, liveHub, events),
		WS:       handler.NewWSHandler(liveHub),
		Admins:   handler.NewAdminHandler(adminSvc, logSvc, sessions, cfg.SuperAdminUser, cfg.SuperAdminPassword),
		Lookup:   handler.NewLookupHandler(lookupClient),
		Sessions: sessions,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &API{
		cfg:     cfg,
		httpSrv: httpSrv,
		events:  events,
		liveHub: liveHub,
	}, nil
}

// Run запускает HTTP сервер, блокируется до отмены ctx.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s", a.httpSrv.Addr)
	log.Printf("  Swagger UI:    %s/swagger", base)
	log.Printf("  Swagger spec:  %s/swagger/openapi.json", base)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  API v1:        %s/api/v1/", base)
	log.Printf("  Lookup proxy:  %s/lookup/{id}", base)

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	// WebSocket loop'ы завершаются закрытием подписок.
	a.liveHub.Close()
	if err := a.events.Close(); err != nil {
		log.Printf("kafka: close: %v", err)
	}
	return nil
}
