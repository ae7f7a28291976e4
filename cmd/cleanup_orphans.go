package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/psds-microservice/support-chat-service/internal/config"
	"github.com/psds-microservice/support-chat-service/internal/database"
	"github.com/psds-microservice/support-chat-service/internal/service"
	"github.com/spf13/cobra"
)

var cleanupDryRun bool

// cleanup-orphans добирает сообщения каналов, чья запись пользователя
// уже удалена, а фоновая очистка не отработала (например, процесс упал
// между delete и cleanup). Повторный запуск безопасен.
var cleanupOrphansCmd = &cobra.Command{
	Use:   "cleanup-orphans",
	Short: "Delete chat messages whose user record is gone",
	RunE:  runCleanupOrphans,
}

func init() {
	cleanupOrphansCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "only count orphaned messages, delete nothing")
	rootCmd.AddCommand(cleanupOrphansCmd)
}

func runCleanupOrphans(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../../.env") // repo root when running from bin/
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}

	svc := service.NewMessageService(db, cfg.MessageMaxBytes)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	orphans, err := svc.CountOrphans(ctx)
	if err != nil {
		return fmt.Errorf("count orphans: %w", err)
	}
	log.Printf("cleanup-orphans: found %d orphaned messages", orphans)
	if cleanupDryRun || orphans == 0 {
		return nil
	}

	deleted, err := svc.CleanupOrphans(ctx)
	if err != nil {
		return fmt.Errorf("cleanup orphans: %w", err)
	}
	log.Printf("cleanup-orphans: done, deleted %d messages", deleted)
	return nil
}
