package audit

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidEvent = errors.New("audit: event id and outcome are required")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Insert stores e. An event whose id is already stored is ignored.
func (r *Repo) Insert(ctx context.Context, e *RelayEvent) error {
	if e.ID == "" || e.Outcome == "" {
		return ErrInvalidEvent
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(e).Error
}

// Recent returns the newest events first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]RelayEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []RelayEvent
	if err := r.db.WithContext(ctx).
		Order("occurred_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// CountByOutcome groups stored events by outcome.
func (r *Repo) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Outcome string
		N       int64
	}
	if err := r.db.WithContext(ctx).
		Model(&RelayEvent{}).
		Select("outcome, COUNT(*) AS n").
		Group("outcome").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Outcome] = row.N
	}
	return out, nil
}
