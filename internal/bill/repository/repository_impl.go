package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propera/internal/bill/domain"
	paymentdomain "github.com/smallbiznis/propera/internal/payment/domain"
	pkgdb "github.com/smallbiznis/propera/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	return db.WithContext(ctx).Create(bill).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := db.WithContext(ctx).First(&bill, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) FindForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Bill, error) {
	var bill domain.Bill
	err := pkgdb.ForUpdate(tx.WithContext(ctx)).First(&bill, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, bill *domain.Bill) error {
	bill.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(bill).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.BillStatus, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		}).Error
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.Bill{}, "id = ?", id).Error
}

func (r *repo) ListDueTemplates(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Bill, error) {
	var bills []domain.Bill
	err := pkgdb.ForUpdateSkipLocked(db.WithContext(ctx)).
		Where("recurrence <> ?", domain.RecurrenceNone).
		Where("next_billing_date IS NOT NULL AND next_billing_date <= ?", now).
		Order("next_billing_date asc, id asc").
		Limit(limit).
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) AdvanceNextBilling(ctx context.Context, db *gorm.DB, id snowflake.ID, prev time.Time, next time.Time, now time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("id = ? AND next_billing_date = ?", id, prev).
		Updates(map[string]any{
			"next_billing_date": next,
			"updated_at":        now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) CountPayments(ctx context.Context, db *gorm.DB, billID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Unscoped().
		Model(&paymentdomain.Payment{}).
		Where("bill_id = ?", billID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
