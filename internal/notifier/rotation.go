package notifier

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Rotation is a persisted round-robin counter. Keeping the last index in its
// own row means the rotation survives restarts and stays correct when several
// service instances dispatch concurrently.
type Rotation struct {
	Name      string    `gorm:"primaryKey;type:text"`
	LastIndex int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Rotation) TableName() string { return "notifier_rotations" }

const rotationOverdueAdmin = "overdue_admin"

var errRotationContended = errors.New("rotation_contended")

// NextRotationIndex advances the named counter modulo size and returns the
// claimed index. The advance is a conditional update; losing the race retries
// a few times before giving up.
func NextRotationIndex(ctx context.Context, db *gorm.DB, name string, size int) (int, error) {
	if size <= 0 {
		return 0, errors.New("rotation_size_must_be_positive")
	}

	for attempt := 0; attempt < 3; attempt++ {
		var row Rotation
		err := db.WithContext(ctx).First(&row, "name = ?", name).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = Rotation{Name: name, LastIndex: 0, UpdatedAt: time.Now().UTC()}
			if createErr := db.WithContext(ctx).Create(&row).Error; createErr == nil {
				return 0, nil
			}
			// Another instance created the row first; fall through and retry.
			continue
		}
		if err != nil {
			return 0, err
		}

		next := (row.LastIndex + 1) % size
		result := db.WithContext(ctx).
			Model(&Rotation{}).
			Where("name = ? AND last_index = ?", name, row.LastIndex).
			Updates(map[string]any{
				"last_index": next,
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return 0, result.Error
		}
		if result.RowsAffected > 0 {
			return next, nil
		}
	}
	return 0, errRotationContended
}
