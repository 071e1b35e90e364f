package counter

import (
	"context"

	"gorm.io/gorm"
)

//go:generate mockgen -destination=mock/counter_repo_mock.go -package=mock . Repository
type Repository interface {
	GetNextValue(ctx context.Context, scope string, counterType string) (int64, error)
}

// Counter rows live in sequence_counters; one row per (scope, counter_type).
type SequenceCounter struct {
	Scope       string `gorm:"type:varchar(64);primaryKey"`
	CounterType string `gorm:"type:varchar(64);primaryKey"`
	LastValue   int64  `gorm:"not null;default:0"`
}

func (SequenceCounter) TableName() string { return "sequence_counters" }

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetNextValue(ctx context.Context, scope string, counterType string) (int64, error) {
	var nextValue int64

	// Atomic upsert so concurrent submissions never share a number.
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO sequence_counters (scope, counter_type, last_value)
		VALUES (?, ?, 1)
		ON CONFLICT (scope, counter_type) DO UPDATE
		SET last_value = sequence_counters.last_value + 1
		RETURNING last_value
	`, scope, counterType).Scan(&nextValue).Error

	if err != nil {
		return 0, err
	}

	return nextValue, nil
}
