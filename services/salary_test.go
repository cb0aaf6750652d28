package services

import (
	"fmt"
	"sync"
	"testing"

	"salary_portal/config"
	"salary_portal/models"
	"salary_portal/types"
	"salary_portal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceTest(t *testing.T) (*SalaryService, *gorm.DB) {
	utils.InitLogger()
	config.AppConfig = config.Config{
		MinSalaryEuros:    1000,
		MaxSalaryEuros:    500000,
		MaxCommission:     50000,
		DefaultCommission: 500,
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.SalaryRecord{},
		&models.SalaryHistory{},
		&models.CommissionPolicy{},
		&models.AuditLog{},
	)
	require.NoError(t, err)

	return NewSalaryService(db), db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) models.User {
	user := models.User{Name: "Test User", Email: email, Role: "employee"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func historyCount(t *testing.T, db *gorm.DB, userID uint) int64 {
	var count int64
	require.NoError(t, db.Model(&models.SalaryHistory{}).Where("user_id = ?", userID).Count(&count).Error)
	return count
}

func TestCreateSalaryComputesDisplayedTotal(t *testing.T) {
	svc, db := setupServiceTest(t)
	user := createTestUser(t, db, "total@company.com")

	record, err := svc.CreateOrUpdateSalary(user.ID, 33333.33, "USD", nil, "Initial salary", nil)
	require.NoError(t, err)

	assert.Equal(t, 28333.33, record.SalaryEuros)
	assert.Equal(t, 500.0, record.Commission) // configured fallback
	assert.Equal(t, 28833.33, record.DisplayedTotal)

	// First creation writes no ledger entry by default.
	assert.EqualValues(t, 0, historyCount(t, db, user.ID))
}

func TestCreateSalaryValidationOrder(t *testing.T) {
	svc, db := setupServiceTest(t)
	user := createTestUser(t, db, "validation@company.com")

	_, err := svc.CreateOrUpdateSalary(user.ID, -100, "EUR", nil, "bad amount", nil)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = svc.CreateOrUpdateSalary(user.ID, 5000, "XYZ", nil, "bad currency", nil)
	assert.ErrorIs(t, err, types.ErrUnsupportedCurrency)

	_, err = svc.CreateOrUpdateSalary(user.ID, 500, "EUR", nil, "below minimum", nil)
	assert.ErrorIs(t, err, types.ErrSalaryOutOfBounds)

	_, err = svc.CreateOrUpdateSalary(user.ID, 900000, "EUR", nil, "above maximum", nil)
	assert.ErrorIs(t, err, types.ErrSalaryOutOfBounds)

	bad := -1.0
	_, err = svc.CreateOrUpdateSalary(user.ID, 5000, "EUR", &bad, "bad commission", nil)
	assert.ErrorIs(t, err, types.ErrInvalidCommission)

	_, err = svc.CreateOrUpdateSalary(user.ID, 5000, "EUR", nil, "   ", nil)
	assert.ErrorIs(t, err, types.ErrEmptyReason)

	// Nothing was written along the way.
	var records int64
	db.Model(&models.SalaryRecord{}).Count(&records)
	assert.EqualValues(t, 0, records)
}

func TestCreateSalaryUnknownUser(t *testing.T) {
	svc, _ := setupServiceTest(t)

	_, err := svc.CreateOrUpdateSalary(9999, 5000, "EUR", nil, "no such user", nil)
	assert.ErrorIs(t, err, types.ErrRecordNotFound)
}

func TestUpdateWritesHistoryOnlyOnChange(t *testing.T) {
	svc, db := setupServiceTest(t)
	user := createTestUser(t, db, "idempotent@company.com")

	_, err := svc.CreateOrUpdateSalary(user.ID, 40000, "EUR", nil, "Initial salary", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, historyCount(t, db, user.ID))

	actor := user.ID
	record, err := svc.CreateOrUpdateSalary(user.ID, 45000, "EUR", nil, "Raise", &actor)
	require.NoError(t, err)
	assert.Equal(t, 45500.0, record.DisplayedTotal)
	assert.EqualValues(t, 1, historyCount(t, db, user.ID))

	var entry models.SalaryHistory
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, 40000.0, entry.OldSalaryEuros)
	assert.Equal(t, 45000.0, entry.NewSalaryEuros)
	assert.Equal(t, "Raise", entry.Reason)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, user.ID, *entry.ActorID)

	// Re-applying identical values writes no second entry.
	_, err = svc.CreateOrUpdateSalary(user.ID, 45000, "EUR", nil, "Raise", &actor)
	require.NoError(t, err)
	assert.EqualValues(t, 1, historyCount(t, db, user.ID))
}

func TestHistoryOnCreateFlag(t *testing.T) {
	svc, db := setupServiceTest(t)
	config.AppConfig.HistoryOnCreate = true
	user := createTestUser(t, db, "bootstrap@company.com")

	_, err := svc.CreateOrUpdateSalary(user.ID, 40000, "EUR", nil, "Initial salary", nil)
	require.NoError(t, err)

	var entry models.SalaryHistory
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, 0.0, entry.OldSalaryEuros)
	assert.Equal(t, 40000.0, entry.NewSalaryEuros)
	assert.Nil(t, entry.ActorID)
}

func TestCommissionPolicyDefault(t *testing.T) {
	svc, db := setupServiceTest(t)
	require.NoError(t, db.Create(&models.CommissionPolicy{
		DefaultAmount: 750,
		Active:        true,
		Description:   "Standard commission",
	}).Error)
	user := createTestUser(t, db, "policy@company.com")

	record, err := svc.CreateOrUpdateSalary(user.ID, 40000, "EUR", nil, "Initial salary", nil)
	require.NoError(t, err)
	assert.Equal(t, 750.0, record.Commission)
	assert.Equal(t, 40750.0, record.DisplayedTotal)

	// An explicit commission wins over the policy.
	explicit := 1200.0
	other := createTestUser(t, db, "explicit@company.com")
	record, err = svc.CreateOrUpdateSalary(other.ID, 40000, "EUR", &explicit, "Initial salary", nil)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, record.Commission)
}

func TestUpdateCommission(t *testing.T) {
	svc, db := setupServiceTest(t)
	user := createTestUser(t, db, "commission@company.com")

	_, err := svc.UpdateCommission(user.ID, 1000, nil, "")
	assert.ErrorIs(t, err, types.ErrRecordNotFound)

	_, err = svc.CreateOrUpdateSalary(user.ID, 40000, "EUR", nil, "Initial salary", nil)
	require.NoError(t, err)

	_, err = svc.UpdateCommission(user.ID, -1, nil, "")
	assert.ErrorIs(t, err, types.ErrInvalidCommission)
	_, err = svc.UpdateCommission(user.ID, 60000, nil, "")
	assert.ErrorIs(t, err, types.ErrInvalidCommission)

	record, err := svc.UpdateCommission(user.ID, 2000, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, record.Commission)
	assert.Equal(t, 42000.0, record.DisplayedTotal)

	// Commission changes are always logged, with the default reason.
	var entry models.SalaryHistory
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&entry).Error)
	assert.Equal(t, 500.0, entry.OldCommission)
	assert.Equal(t, 2000.0, entry.NewCommission)
	assert.Equal(t, "Commission update", entry.Reason)
}

func TestBulkUpdatePartialSuccess(t *testing.T) {
	svc, db := setupServiceTest(t)
	user := createTestUser(t, db, "bulk@company.com")
	actor := createTestUser(t, db, "admin@company.com")

	amount := 40000.0
	updates := []BulkSalaryUpdate{
		{UserID: user.ID, LocalAmount: &amount, CurrencyCode: "EUR", Reason: "Annual review"},
		{UserID: 9999, LocalAmount: &amount, CurrencyCode: "EUR", Reason: "Annual review"},
	}

	results := svc.BulkUpdateSalaries(updates, &actor.ID)
	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.Equal(t, user.ID, results[0].UserID)
	require.NotNil(t, results[0].Record)
	assert.Equal(t, 40000.0, results[0].Record.SalaryEuros)

	assert.False(t, results[1].Success)
	assert.Equal(t, types.ErrRecordNotFound.Error(), results[1].Error)

	// The failing item did not roll back the committed one.
	var record models.SalaryRecord
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&record).Error)
	assert.Equal(t, 40000.0, record.SalaryEuros)
}

func TestBulkUpdateSingleTransaction(t *testing.T) {
	svc, db := setupServiceTest(t)
	config.AppConfig.BulkSingleTx = true
	first := createTestUser(t, db, "atomic1@company.com")
	third := createTestUser(t, db, "atomic3@company.com")

	amount := 40000.0
	updates := []BulkSalaryUpdate{
		{UserID: first.ID, LocalAmount: &amount, CurrencyCode: "EUR", Reason: "Annual review"},
		{UserID: 9999, LocalAmount: &amount, CurrencyCode: "EUR", Reason: "Annual review"},
		{UserID: third.ID, LocalAmount: &amount, CurrencyCode: "EUR", Reason: "Annual review"},
	}

	results := svc.BulkUpdateSalaries(updates, nil)
	require.Len(t, results, 3)

	// The succeeded-then-rolled-back item reports the rollback.
	assert.False(t, results[0].Success)
	assert.Equal(t, first.ID, results[0].UserID)
	assert.Equal(t, "batch rolled back", results[0].Error)

	// The failing item keeps its specific error.
	assert.False(t, results[1].Success)
	assert.EqualValues(t, 9999, results[1].UserID)
	assert.Equal(t, types.ErrRecordNotFound.Error(), results[1].Error)

	// The item after the failure still identifies its user and explains
	// why it was not applied.
	assert.False(t, results[2].Success)
	assert.Equal(t, third.ID, results[2].UserID)
	assert.Equal(t, "batch rolled back", results[2].Error)

	// Everything rolled back, including the first item.
	var count int64
	db.Model(&models.SalaryRecord{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestSalaryStatistics(t *testing.T) {
	svc, db := setupServiceTest(t)

	stats, err := svc.GetSalaryStatistics()
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Count)
	assert.Equal(t, 0.0, stats.MedianEuros)
	assert.Empty(t, stats.CurrencyDistribution)

	amounts := []float64{30000, 40000, 50000}
	for i, amount := range amounts {
		user := createTestUser(t, db, fmt.Sprintf("stats%d@company.com", i))
		_, err := svc.CreateOrUpdateSalary(user.ID, amount, "EUR", nil, "Initial salary", nil)
		require.NoError(t, err)
	}

	stats, err = svc.GetSalaryStatistics()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Count)
	assert.Equal(t, 40000.0, stats.MedianEuros)
	assert.Equal(t, 40000.0, stats.AverageEuros)
	assert.Equal(t, 30000.0, stats.MinEuros)
	assert.Equal(t, 50000.0, stats.MaxEuros)
	assert.Equal(t, 1500.0, stats.TotalCommission)
	assert.Equal(t, 500.0, stats.AverageCommission)
	assert.EqualValues(t, 3, stats.CurrencyDistribution["EUR"])

	// Even count averages the two middle values.
	user := createTestUser(t, db, "stats3@company.com")
	_, err = svc.CreateOrUpdateSalary(user.ID, 60000, "EUR", nil, "Initial salary", nil)
	require.NoError(t, err)

	stats, err = svc.GetSalaryStatistics()
	require.NoError(t, err)
	assert.Equal(t, 45000.0, stats.MedianEuros)
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	svc, db := setupServiceTest(t)
	user := createTestUser(t, db, "concurrent@company.com")

	_, err := svc.CreateOrUpdateSalary(user.ID, 10000, "EUR", nil, "Initial salary", nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, amount := range []float64{20000, 30000} {
		wg.Add(1)
		go func(amount float64) {
			defer wg.Done()
			_, err := svc.CreateOrUpdateSalary(user.ID, amount, "EUR", nil, "Concurrent raise", nil)
			assert.NoError(t, err)
		}(amount)
	}
	wg.Wait()

	var entries []models.SalaryHistory
	require.NoError(t, db.Where("user_id = ?", user.ID).Order("id ASC").Find(&entries).Error)
	require.Len(t, entries, 2)

	// The second update's old snapshot must chain off the first update's
	// result, never off the original value.
	assert.Equal(t, 10000.0, entries[0].OldSalaryEuros)
	assert.Equal(t, entries[0].NewSalaryEuros, entries[1].OldSalaryEuros)

	var record models.SalaryRecord
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&record).Error)
	assert.Equal(t, entries[1].NewSalaryEuros, record.SalaryEuros)

	// All locks were released, so the lock table is empty again.
	svc.mu.Lock()
	assert.Empty(t, svc.userLocks)
	svc.mu.Unlock()
}

func TestUserLockTableIsEvicted(t *testing.T) {
	svc, db := setupServiceTest(t)

	for i := 0; i < 5; i++ {
		user := createTestUser(t, db, fmt.Sprintf("lock%d@company.com", i))
		_, err := svc.CreateOrUpdateSalary(user.ID, 40000, "EUR", nil, "Initial salary", nil)
		require.NoError(t, err)
	}

	// Lock entries live only while an update is in flight; they do not
	// accumulate one per user ever updated.
	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Empty(t, svc.userLocks)
}
