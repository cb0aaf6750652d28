package services

import (
	"strings"
	"sync"
	"time"

	"salary_portal/config"
	"salary_portal/currency"
	"salary_portal/models"
	"salary_portal/types"
	"salary_portal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SalaryService orchestrates validation, currency conversion, persistence
// and ledger writes for salary updates. All mutations of a SalaryRecord go
// through here.
type SalaryService struct {
	DB     *gorm.DB
	Ledger *HistoryLedger

	// Serializes read-modify-write per user so two concurrent updates
	// cannot both capture the same "old" snapshot.
	mu        sync.Mutex
	userLocks map[uint]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func NewSalaryService(db *gorm.DB) *SalaryService {
	return &SalaryService{
		DB:        db,
		Ledger:    &HistoryLedger{DB: db},
		userLocks: make(map[uint]*userLock),
	}
}

// lockUser blocks until the per-user lock is held and returns the release
// function. Entries are reference counted and dropped on release so the
// lock table stays proportional to in-flight updates, not to every user
// ever touched.
func (s *SalaryService) lockUser(userID uint) func() {
	s.mu.Lock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &userLock{}
		s.userLocks[userID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.userLocks, userID)
		}
		s.mu.Unlock()
	}
}

// CreateOrUpdateSalary converts the local amount to euros, validates policy
// bounds, and persists the record together with its history entry in one
// transaction. A nil commission resolves to the active commission policy
// default; a nil actorID marks a system action.
func (s *SalaryService) CreateOrUpdateSalary(userID uint, localAmount float64, currencyCode string, commission *float64, reason string, actorID *uint) (*models.SalaryRecord, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	var record *models.SalaryRecord
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var txErr error
		record, txErr = s.createOrUpdateSalaryTx(tx, userID, localAmount, currencyCode, commission, reason, actorID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// createOrUpdateSalaryTx runs the validation pipeline and writes inside the
// caller's transaction. Checks run in a fixed order: amount, currency,
// bounds, commission, reason.
func (s *SalaryService) createOrUpdateSalaryTx(tx *gorm.DB, userID uint, localAmount float64, currencyCode string, commission *float64, reason string, actorID *uint) (*models.SalaryRecord, error) {
	if localAmount <= 0 {
		return nil, types.ErrInvalidAmount
	}
	if currencyCode == "" {
		currencyCode = "EUR"
	}
	currencyCode = strings.ToUpper(currencyCode)

	euros, err := currency.ConvertToEuros(localAmount, currencyCode)
	if err != nil {
		return nil, err
	}
	if euros < config.AppConfig.MinSalaryEuros || euros > config.AppConfig.MaxSalaryEuros {
		return nil, types.ErrSalaryOutOfBounds
	}
	if commission != nil && (*commission < 0 || *commission > config.AppConfig.MaxCommission) {
		return nil, types.ErrInvalidCommission
	}
	if strings.TrimSpace(reason) == "" {
		return nil, types.ErrEmptyReason
	}

	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrRecordNotFound
		}
		return nil, err
	}

	var record models.SalaryRecord
	err = tx.Where("user_id = ?", userID).First(&record).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		resolved := s.resolveCommission(tx, commission)
		record = models.SalaryRecord{
			UserID:         userID,
			LocalAmount:    localAmount,
			CurrencyCode:   currencyCode,
			SalaryEuros:    euros,
			Commission:     resolved,
			DisplayedTotal: currency.RoundHalfUp(euros + resolved),
			EffectiveDate:  time.Now(),
		}
		if err := tx.Create(&record).Error; err != nil {
			return nil, err
		}
		if config.AppConfig.HistoryOnCreate {
			entry := models.SalaryHistory{
				UserID:         userID,
				NewLocalAmount: record.LocalAmount,
				NewSalaryEuros: record.SalaryEuros,
				NewCommission:  record.Commission,
				ActorID:        actorID,
				Reason:         reason,
			}
			if err := s.Ledger.Append(tx, &entry); err != nil {
				return nil, err
			}
		}
		return &record, nil

	case err != nil:
		return nil, err
	}

	old := record
	record.LocalAmount = localAmount
	record.CurrencyCode = currencyCode
	record.SalaryEuros = euros
	if commission != nil {
		record.Commission = *commission
	}
	record.DisplayedTotal = currency.RoundHalfUp(record.SalaryEuros + record.Commission)
	record.EffectiveDate = time.Now()

	changed := old.LocalAmount != record.LocalAmount ||
		old.SalaryEuros != record.SalaryEuros ||
		old.Commission != record.Commission

	if err := tx.Save(&record).Error; err != nil {
		return nil, err
	}

	// Re-applying identical values writes nothing to the ledger.
	if changed {
		entry := models.SalaryHistory{
			UserID:         userID,
			OldLocalAmount: old.LocalAmount,
			NewLocalAmount: record.LocalAmount,
			OldSalaryEuros: old.SalaryEuros,
			NewSalaryEuros: record.SalaryEuros,
			OldCommission:  old.Commission,
			NewCommission:  record.Commission,
			ActorID:        actorID,
			Reason:         reason,
		}
		if err := s.Ledger.Append(tx, &entry); err != nil {
			return nil, err
		}
	}
	return &record, nil
}

// UpdateCommission changes only the commission of an existing record.
// Unlike first-time record creation, commission changes are always logged.
func (s *SalaryService) UpdateCommission(userID uint, newCommission float64, actorID *uint, reason string) (*models.SalaryRecord, error) {
	if newCommission < 0 || newCommission > config.AppConfig.MaxCommission {
		return nil, types.ErrInvalidCommission
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Commission update"
	}

	unlock := s.lockUser(userID)
	defer unlock()

	var record models.SalaryRecord
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&record).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return types.ErrRecordNotFound
			}
			return err
		}

		old := record
		record.Commission = newCommission
		record.DisplayedTotal = currency.RoundHalfUp(record.SalaryEuros + record.Commission)
		if err := tx.Save(&record).Error; err != nil {
			return err
		}

		entry := models.SalaryHistory{
			UserID:         userID,
			OldLocalAmount: old.LocalAmount,
			NewLocalAmount: record.LocalAmount,
			OldSalaryEuros: old.SalaryEuros,
			NewSalaryEuros: record.SalaryEuros,
			OldCommission:  old.Commission,
			NewCommission:  record.Commission,
			ActorID:        actorID,
			Reason:         reason,
		}
		return s.Ledger.Append(tx, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// BulkSalaryUpdate is one item of a bulk request. LocalAmount nil with
// Commission set means a commission-only change.
type BulkSalaryUpdate struct {
	UserID       uint     `json:"user_id"`
	LocalAmount  *float64 `json:"local_amount,omitempty"`
	CurrencyCode string   `json:"currency_code,omitempty"`
	Commission   *float64 `json:"commission,omitempty"`
	Reason       string   `json:"reason"`
}

type BulkUpdateResult struct {
	UserID  uint                 `json:"user_id"`
	Success bool                 `json:"success"`
	Error   string               `json:"error,omitempty"`
	Record  *models.SalaryRecord `json:"record,omitempty"`
}

// BulkUpdateSalaries processes items independently and never aborts the
// batch: a failed item is captured in its result slot while the rest
// proceed. Results come back in input order. With BULK_SINGLE_TX set the
// whole batch instead shares one transaction and any failure rolls back
// every item.
func (s *SalaryService) BulkUpdateSalaries(updates []BulkSalaryUpdate, actorID *uint) []BulkUpdateResult {
	if config.AppConfig.BulkSingleTx {
		return s.bulkUpdateAtomic(updates, actorID)
	}

	results := make([]BulkUpdateResult, len(updates))
	for i, update := range updates {
		record, err := s.applyBulkItem(update, actorID)
		results[i] = toBulkResult(update.UserID, record, err)
	}
	return results
}

func (s *SalaryService) applyBulkItem(update BulkSalaryUpdate, actorID *uint) (*models.SalaryRecord, error) {
	if update.LocalAmount != nil {
		return s.CreateOrUpdateSalary(update.UserID, *update.LocalAmount, update.CurrencyCode, update.Commission, update.Reason, actorID)
	}
	if update.Commission != nil {
		return s.UpdateCommission(update.UserID, *update.Commission, actorID, update.Reason)
	}
	return nil, types.ErrInvalidAmount
}

func (s *SalaryService) bulkUpdateAtomic(updates []BulkSalaryUpdate, actorID *uint) []BulkUpdateResult {
	results := make([]BulkUpdateResult, len(updates))
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for i, update := range updates {
			var record *models.SalaryRecord
			var itemErr error
			if update.LocalAmount != nil {
				record, itemErr = s.createOrUpdateSalaryTx(tx, update.UserID, *update.LocalAmount, update.CurrencyCode, update.Commission, update.Reason, actorID)
			} else if update.Commission != nil {
				record, itemErr = s.updateCommissionTx(tx, update.UserID, *update.Commission, actorID, update.Reason)
			} else {
				itemErr = types.ErrInvalidAmount
			}
			results[i] = toBulkResult(update.UserID, record, itemErr)
			if itemErr != nil {
				return itemErr
			}
		}
		return nil
	})
	if err != nil {
		// Rolled back: no item survives. Items that had succeeded and
		// items after the failing one all report the rollback; only the
		// failing item keeps its specific error.
		for i := range results {
			if results[i].Success || results[i].Error == "" {
				results[i] = BulkUpdateResult{
					UserID:  updates[i].UserID,
					Success: false,
					Error:   "batch rolled back",
				}
			}
		}
	}
	return results
}

func (s *SalaryService) updateCommissionTx(tx *gorm.DB, userID uint, newCommission float64, actorID *uint, reason string) (*models.SalaryRecord, error) {
	if newCommission < 0 || newCommission > config.AppConfig.MaxCommission {
		return nil, types.ErrInvalidCommission
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Commission update"
	}

	var record models.SalaryRecord
	if err := tx.Where("user_id = ?", userID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.ErrRecordNotFound
		}
		return nil, err
	}

	old := record
	record.Commission = newCommission
	record.DisplayedTotal = currency.RoundHalfUp(record.SalaryEuros + record.Commission)
	if err := tx.Save(&record).Error; err != nil {
		return nil, err
	}

	entry := models.SalaryHistory{
		UserID:         userID,
		OldLocalAmount: old.LocalAmount,
		NewLocalAmount: record.LocalAmount,
		OldSalaryEuros: old.SalaryEuros,
		NewSalaryEuros: record.SalaryEuros,
		OldCommission:  old.Commission,
		NewCommission:  record.Commission,
		ActorID:        actorID,
		Reason:         reason,
	}
	if err := s.Ledger.Append(tx, &entry); err != nil {
		return nil, err
	}
	return &record, nil
}

func toBulkResult(userID uint, record *models.SalaryRecord, err error) BulkUpdateResult {
	if err != nil {
		return BulkUpdateResult{UserID: userID, Success: false, Error: err.Error()}
	}
	return BulkUpdateResult{UserID: userID, Success: true, Record: record}
}

// resolveCommission picks the explicit value when given, otherwise the
// active commission policy default, otherwise the configured fallback.
func (s *SalaryService) resolveCommission(tx *gorm.DB, explicit *float64) float64 {
	if explicit != nil {
		return *explicit
	}
	var policy models.CommissionPolicy
	err := tx.Where("active = ?", true).Order("updated_at DESC").First(&policy).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			utils.Logger.Error("Failed to read commission policy", zap.Error(err))
		}
		return config.AppConfig.DefaultCommission
	}
	return policy.DefaultAmount
}

type SalaryStatistics struct {
	Count                int64            `json:"count"`
	AverageEuros         float64          `json:"average_euros"`
	MedianEuros          float64          `json:"median_euros"`
	MinEuros             float64          `json:"min_euros"`
	MaxEuros             float64          `json:"max_euros"`
	TotalCommission      float64          `json:"total_commission"`
	AverageCommission    float64          `json:"average_commission"`
	CurrencyDistribution map[string]int64 `json:"currency_distribution"`
}

// GetSalaryStatistics aggregates over all salary records. No records is not
// an error; it returns the zero statistics with an empty distribution.
func (s *SalaryService) GetSalaryStatistics() (*SalaryStatistics, error) {
	var records []models.SalaryRecord
	if err := s.DB.Order("salary_euros ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	stats := &SalaryStatistics{
		CurrencyDistribution: make(map[string]int64),
	}
	if len(records) == 0 {
		return stats, nil
	}

	stats.Count = int64(len(records))
	stats.MinEuros = records[0].SalaryEuros
	stats.MaxEuros = records[len(records)-1].SalaryEuros

	var totalEuros float64
	for _, record := range records {
		totalEuros += record.SalaryEuros
		stats.TotalCommission += record.Commission
		stats.CurrencyDistribution[record.CurrencyCode]++
	}
	stats.AverageEuros = currency.RoundHalfUp(totalEuros / float64(len(records)))
	stats.AverageCommission = currency.RoundHalfUp(stats.TotalCommission / float64(len(records)))

	// Records are already sorted by euro amount for the median.
	mid := len(records) / 2
	if len(records)%2 == 1 {
		stats.MedianEuros = records[mid].SalaryEuros
	} else {
		stats.MedianEuros = currency.RoundHalfUp((records[mid-1].SalaryEuros + records[mid].SalaryEuros) / 2)
	}
	return stats, nil
}
