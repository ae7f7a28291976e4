package service

import (
	"context"

	"github.com/psds-microservice/support-chat-service/internal/errs"
	"github.com/psds-microservice/support-chat-service/internal/model"
	"gorm.io/gorm"
)

// MessageServicer — интерфейс для хендлеров и hub'а.
type MessageServicer interface {
	Validate(m *model.Message) error
	Append(ctx context.Context, m *model.Message) error
	ListByTransaction(ctx context.Context, transactionID string) ([]model.Message, error)
	CascadeCleanup(ctx context.Context, transactionID string) (int64, error)
}

type MessageService struct {
	db       *gorm.DB
	maxBytes int
}

func NewMessageService(db *gorm.DB, maxBytes int) *MessageService {
	return &MessageService{db: db, maxBytes: maxBytes}
}

// Validate проверяет отправителя и размер текста. Вынесена отдельно,
// чтобы хендлер отбраковывал мусор до расхода квоты rate-лимита.
func (s *MessageService) Validate(m *model.Message) error {
	if !model.ValidSender(m.Sender) {
		return errs.ErrInvalidSender
	}
	if len(m.Text) > s.maxBytes {
		return errs.ErrMessageTooLarge
	}
	return nil
}

// Append — append-only вставка. TransactionID намеренно не проверяется
// на существование пользователя: клиент может писать в канал до того,
// как оператор заведёт запись.
func (s *MessageService) Append(ctx context.Context, m *model.Message) error {
	if err := s.Validate(m); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(m).Error
}

// ListByTransaction возвращает весь канал в порядке отправки.
// Тай-брейк по id: created_at назначает база, совпадения возможны.
func (s *MessageService) ListByTransaction(ctx context.Context, transactionID string) ([]model.Message, error) {
	items := make([]model.Message, 0)
	err := s.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CascadeCleanup удаляет все сообщения канала одним батчем в
// транзакции. Повторный запуск по уже вычищенному каналу — no-op.
func (s *MessageService) CascadeCleanup(ctx context.Context, transactionID string) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Message{}, "transaction_id = ?", transactionID)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// CountOrphans считает сообщения, чей transaction_id не ссылается на
// существующего пользователя и у которых канал считается брошенным.
func (s *MessageService) CountOrphans(ctx context.Context) (int64, error) {
	var n int64
	sub := s.db.Model(&model.User{}).Select("user_id")
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("transaction_id NOT IN (?)", sub).
		Count(&n).Error
	return n, err
}

// CleanupOrphans добирает каналы, которые фоновая очистка могла
// пропустить (например, при падении процесса между delete и cleanup).
func (s *MessageService) CleanupOrphans(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&model.User{}).Select("user_id")
		res := tx.Where("transaction_id NOT IN (?)", sub).Delete(&model.Message{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
