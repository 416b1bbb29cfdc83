package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/prudvi9160/smart-ai-content-creator/internal/domain"
)

// ContentStats returns the number of stored records and the newest CreatedAt
// among them (nil when the table is empty). The HTTP layer derives the list
// ETag from these two values.
func ContentStats(ctx context.Context, db *gorm.DB) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.GeneratedContent{})

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
