package services

import (
	"time"

	"salary_portal/models"

	"gorm.io/gorm"
)

// HistoryLedger is the append-only log of salary changes. Only Append
// writes; there is no update or delete surface.
type HistoryLedger struct {
	DB *gorm.DB
}

// HistoryQuery narrows and pages a ledger read. Zero Limit means the
// default page size.
type HistoryQuery struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

const defaultHistoryPageSize = 50

// Append writes one entry inside the caller's transaction so the ledger
// row commits or rolls back together with the salary record it describes.
func (l *HistoryLedger) Append(tx *gorm.DB, entry *models.SalaryHistory) error {
	return tx.Create(entry).Error
}

// QueryByUser returns a user's entries newest first, ties broken by
// insertion order.
func (l *HistoryLedger) QueryByUser(userID uint, q HistoryQuery) ([]models.SalaryHistory, error) {
	return l.query(l.DB.Where("user_id = ?", userID), q)
}

// QueryByActor returns the entries recorded by one actor, newest first.
func (l *HistoryLedger) QueryByActor(actorID uint, q HistoryQuery) ([]models.SalaryHistory, error) {
	return l.query(l.DB.Where("actor_id = ?", actorID), q)
}

func (l *HistoryLedger) query(scope *gorm.DB, q HistoryQuery) ([]models.SalaryHistory, error) {
	if q.From != nil {
		scope = scope.Where("created_at >= ?", *q.From)
	}
	if q.To != nil {
		scope = scope.Where("created_at <= ?", *q.To)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultHistoryPageSize
	}

	var entries []models.SalaryHistory
	err := scope.Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(q.Offset).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
