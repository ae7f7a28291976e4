package service

import (
	"context"
	"errors"

	"github.com/psds-microservice/support-chat-service/internal/errs"
	"github.com/psds-microservice/support-chat-service/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// adminCreateLockID — ключ advisory-лока, сериализующего создание
// админов: count+insert должны быть атомарными, иначе лимит обходится
// параллельными запросами.
const adminCreateLockID = 0x70736473_0001

// AdminServicer — интерфейс для хендлеров.
type AdminServicer interface {
	Create(ctx context.Context, username, password string, super bool) (*model.Admin, error)
	Authenticate(ctx context.Context, username, password string) (*model.Admin, error)
	List(ctx context.Context) ([]model.Admin, error)
	Delete(ctx context.Context, username string) error
}

type AdminService struct {
	db    *gorm.DB
	limit int
}

func NewAdminService(db *gorm.DB, limit int) *AdminService {
	return &AdminService{db: db, limit: limit}
}

func (s *AdminService) Create(ctx context.Context, username, password string, super bool) (*model.Admin, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	admin := &model.Admin{Username: username, PasswordHash: string(hash), SuperAdmin: super}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", adminCreateLockID).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&model.Admin{}).Count(&n).Error; err != nil {
			return err
		}
		if n >= int64(s.limit) {
			return errs.ErrAdminLimit
		}
		if err := tx.Create(admin).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.ErrAdminExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *AdminService) Authenticate(ctx context.Context, username, password string) (*model.Admin, error) {
	var admin model.Admin
	if err := s.db.WithContext(ctx).First(&admin, "username = ?", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, errs.ErrBadCredentials
	}
	return &admin, nil
}

func (s *AdminService) List(ctx context.Context) ([]model.Admin, error) {
	var items []model.Admin
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *AdminService) Delete(ctx context.Context, username string) error {
	res := s.db.WithContext(ctx).Delete(&model.Admin{}, "username = ?", username)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrAdminNotFound
	}
	return nil
}
