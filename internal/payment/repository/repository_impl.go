package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propera/internal/payment/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByBill deliberately reads through soft deletes: balance derivation
// counts every completed payment that ever existed.
func (r *repo) ListByBill(ctx context.Context, db *gorm.DB, billID snowflake.ID) ([]domain.Payment, error) {
	var payments []domain.Payment
	err := db.WithContext(ctx).
		Unscoped().
		Where("bill_id = ?", billID).
		Order("payment_date asc, id asc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.PaymentStatus, processedBy string, now time.Time) error {
	updates := map[string]any{
		"status":     status,
		"updated_at": now,
	}
	if processedBy != "" {
		updates["processed_by"] = processedBy
	}
	return db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) UpdateMetadata(ctx context.Context, db *gorm.DB, id snowflake.ID, metadata datatypes.JSONMap, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"metadata":   metadata,
			"updated_at": now,
		}).Error
}
