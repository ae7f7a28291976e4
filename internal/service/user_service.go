package service

import (
	"context"
	"errors"

	"github.com/psds-microservice/support-chat-service/internal/errs"
	"github.com/psds-microservice/support-chat-service/internal/model"
	"gorm.io/gorm"
)

// UserServicer — интерфейс для хендлеров (Dependency Inversion).
type UserServicer interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]model.User, int64, error)
	Overwrite(ctx context.Context, id string, u *model.User) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Create(ctx context.Context, u *model.User) error {
	if !model.ValidAccountStatus(u.AccountStatus) {
		return errs.ErrInvalidStatus
	}
	u.Version = 1
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "user_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *UserService) List(ctx context.Context, filter map[string]interface{}, limit, offset int) ([]model.User, int64, error) {
	var items []model.User
	var total int64
	tx := s.db.WithContext(ctx).Model(&model.User{})
	for k, v := range filter {
		tx = tx.Where(k, v)
	}
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

// Overwrite полностью заменяет запись. u.Version должна совпадать с
// текущей версией в базе, иначе ErrVersionConflict — так два оператора
// не затирают правки друг друга молча.
func (s *UserService) Overwrite(ctx context.Context, id string, u *model.User) (*model.User, error) {
	if !model.ValidAccountStatus(u.AccountStatus) {
		return nil, errs.ErrInvalidStatus
	}
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("user_id = ? AND version = ?", id, u.Version).
		Updates(map[string]interface{}{
			"type":           u.Type,
			"account_status": u.AccountStatus,
			"username":       u.Username,
			"date_created":   u.DateCreated,
			"active_reports": u.ActiveReports,
			"profile_image":  u.ProfileImage,
			"banner_image":   u.BannerImage,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Либо записи нет, либо версия устарела.
		if _, err := s.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, errs.ErrVersionConflict
	}
	return s.GetByID(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&model.User{}, "user_id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrUserNotFound
	}
	return nil
}
