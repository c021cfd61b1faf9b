package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propera/internal/property/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindProperty(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Property, error) {
	var property domain.Property
	if err := first(ctx, db, &property, id); err != nil {
		return nil, err
	}
	if property.ID == 0 {
		return nil, nil
	}
	return &property, nil
}

func (r *repo) FindResident(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Resident, error) {
	var resident domain.Resident
	if err := first(ctx, db, &resident, id); err != nil {
		return nil, err
	}
	if resident.ID == 0 {
		return nil, nil
	}
	return &resident, nil
}

func (r *repo) FindService(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Service, error) {
	var service domain.Service
	if err := first(ctx, db, &service, id); err != nil {
		return nil, err
	}
	if service.ID == 0 {
		return nil, nil
	}
	return &service, nil
}

func (r *repo) FindAttachment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PropertyService, error) {
	var attachment domain.PropertyService
	if err := first(ctx, db, &attachment, id); err != nil {
		return nil, err
	}
	if attachment.ID == 0 {
		return nil, nil
	}
	return &attachment, nil
}

func first(ctx context.Context, db *gorm.DB, dest any, id snowflake.ID) error {
	err := db.WithContext(ctx).First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func (r *repo) ListActiveAttachments(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) ([]domain.PropertyService, error) {
	var attachments []domain.PropertyService
	err := db.WithContext(ctx).
		Where("property_id = ? AND status = ?", propertyID, domain.AttachmentStatusActive).
		Order("id asc").
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *repo) ListPropertiesWithActiveAttachments(ctx context.Context, db *gorm.DB, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.PropertyService{}).
		Distinct("property_id").
		Where("status = ?", domain.AttachmentStatusActive).
		Limit(limit).
		Pluck("property_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) ListRelationships(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) ([]domain.ResidentProperty, error) {
	var relationships []domain.ResidentProperty
	err := db.WithContext(ctx).
		Where("property_id = ?", propertyID).
		Order("id asc").
		Find(&relationships).Error
	if err != nil {
		return nil, err
	}
	return relationships, nil
}

func (r *repo) ListRelationshipsOverlapping(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.ResidentProperty, error) {
	var relationships []domain.ResidentProperty
	err := db.WithContext(ctx).
		Where("start_date < ?", to).
		Where("end_date IS NULL OR end_date >= ?", from).
		Order("start_date asc, id asc").
		Find(&relationships).Error
	if err != nil {
		return nil, err
	}
	return relationships, nil
}

// AdvanceLastBilled is the serialization point for billing runs: the update
// only lands when the anchor still holds the value the caller observed.
func (r *repo) AdvanceLastBilled(ctx context.Context, db *gorm.DB, attachmentID snowflake.ID, prev *time.Time, next time.Time) (bool, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.PropertyService{}).
		Where("id = ?", attachmentID)
	if prev == nil {
		stmt = stmt.Where("last_billed_at IS NULL")
	} else {
		stmt = stmt.Where("last_billed_at = ?", *prev)
	}
	result := stmt.Updates(map[string]any{
		"last_billed_at": next,
		"updated_at":     next,
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
