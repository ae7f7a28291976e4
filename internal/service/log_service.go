package service

import (
	"context"
	"time"

	"github.com/psds-microservice/support-chat-service/internal/model"
	"gorm.io/gorm"
)

// LogServicer — интерфейс для хендлеров.
type LogServicer interface {
	Append(ctx context.Context, adminName, action, affectedUsername, affectedUserID string) error
	List(ctx context.Context, limit, offset int) ([]model.ModLog, int64, error)
}

type LogService struct {
	db *gorm.DB
}

func NewLogService(db *gorm.DB) *LogService {
	return &LogService{db: db}
}

// Append пишет запись журнала. Записи никогда не каскадятся: журнал
// переживает удаление пользователя, на которого ссылается.
func (s *LogService) Append(ctx context.Context, adminName, action, affectedUsername, affectedUserID string) error {
	entry := &model.ModLog{
		AdminName:        adminName,
		Action:           action,
		AffectedUsername: affectedUsername,
		AffectedUserID:   affectedUserID,
		Timestamp:        time.Now().Format(time.RFC1123),
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *LogService) List(ctx context.Context, limit, offset int) ([]model.ModLog, int64, error) {
	var items []model.ModLog
	var total int64
	tx := s.db.WithContext(ctx).Model(&model.ModLog{})
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	if err := tx.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
