package repository

import (
	"context"

	"github.com/saifjishan/chatmeme/internal/domain"
	"gorm.io/gorm"
)

// HistoryRepository manages the chat sidebar history: append-only per
// turn, cleared only by an explicit user action.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository.
// Parameters:
//   - db: initialized GORM database handle.
// Returns:
//   - *HistoryRepository: ready-to-use repository.
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append records one finished turn.
// Parameters:
//   - ctx: request context for cancellation.
//   - turn: the turn to persist; ID and CreatedAt must be set.
// Returns:
//   - error: non-nil if the insert fails.
func (r *HistoryRepository) Append(ctx context.Context, turn *domain.ChatTurn) error {
	return r.db.WithContext(ctx).Create(turn).Error
}

// ListRecent returns the newest turns first, at most limit entries.
// Parameters:
//   - ctx: request context for cancellation.
//   - limit: maximum number of turns; non-positive means 50.
// Returns:
//   - []domain.ChatTurn: turns ordered by creation time descending.
//   - error: non-nil if the query fails.
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.ChatTurn, error) {
	if limit <= 0 {
		limit = 50
	}
	var turns []domain.ChatTurn
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&turns).Error
	return turns, err
}

// Clear deletes all history entries.
// Parameters:
//   - ctx: request context for cancellation.
// Returns:
//   - int64: number of rows removed.
//   - error: non-nil if the delete fails.
func (r *HistoryRepository) Clear(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&domain.ChatTurn{})
	return result.RowsAffected, result.Error
}
