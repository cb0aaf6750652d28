package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `json:"-"`
	Role         string         `gorm:"not null;default:'employee'" json:"role"` // admin, employee
	SalaryRecord *SalaryRecord  `gorm:"foreignKey:UserID" json:"salary_record,omitempty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// SalaryRecord holds a user's current compensation. One row per user,
// mutated only through the salary service. DisplayedTotal is derived and
// recomputed on every write, never set independently.
type SalaryRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	LocalAmount    float64   `gorm:"not null" json:"local_amount"`
	CurrencyCode   string    `gorm:"size:3;not null;default:'EUR'" json:"currency_code"`
	SalaryEuros    float64   `gorm:"not null" json:"salary_euros"`
	Commission     float64   `gorm:"not null;default:500" json:"commission"`
	DisplayedTotal float64   `gorm:"not null" json:"displayed_total"`
	EffectiveDate  time.Time `json:"effective_date"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

// SalaryHistory is an append-only ledger row recording one committed change
// to a salary record. Rows are never updated or deleted; the autoincrement
// ID doubles as the insertion-order tie-break when timestamps collide.
type SalaryHistory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index;not null" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID" json:"-"`
	OldLocalAmount float64   `json:"old_local_amount"`
	NewLocalAmount float64   `json:"new_local_amount"`
	OldSalaryEuros float64   `json:"old_salary_euros"`
	NewSalaryEuros float64   `json:"new_salary_euros"`
	OldCommission  float64   `json:"old_commission"`
	NewCommission  float64   `json:"new_commission"`
	ActorID        *uint     `gorm:"index" json:"actor_id"` // nil for system actions
	Reason         string    `gorm:"not null" json:"reason"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

// CommissionPolicy is the current default commission applied to new salary
// records without an explicit value. Changing it has no retroactive effect.
type CommissionPolicy struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DefaultAmount float64   `gorm:"not null" json:"default_amount"`
	Active        bool      `gorm:"not null;default:true" json:"active"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

// AuditLog records non-salary events (user created/deleted, salary
// submitted) in the same append-only style as the salary ledger.
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActorID    *uint     `gorm:"index" json:"actor_id"`
	Action     string    `gorm:"not null" json:"action"`
	EntityType string    `gorm:"not null" json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
}
