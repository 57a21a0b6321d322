// Package domain defines the persistence models for finance records and
// tasks. These types are mapped with GORM and are the tables the chatbot
// reads through generated SQL and writes through the create path.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table names. Generated SQL must use these exactly.
const (
	FinanceTable = "finance"
	TaskTable    = "task"
)

// TransactionType classifies a finance record.
type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"
	TransactionLoan    TransactionType = "LOAN"
	TransactionBorrow  TransactionType = "BORROW"
)

// Priority of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TaskType groups tasks by area of life.
type TaskType string

const (
	TaskOfficial TaskType = "official"
	TaskFamily   TaskType = "family"
	TaskPersonal TaskType = "personal"
)

// Defaults applied by the create path when a slot was not extracted.
const (
	DefaultCategory    = "General"
	DefaultDescription = "Added via chatbot"
)

// Finance is a single money movement owned by a user.
//
// Fields:
//   - UserID: owning tenant; every chatbot read is filtered on it.
//   - TransactionDate: calendar day of the movement.
//   - Amount: positive amount with two fraction digits.
//   - Category: free-form bucket, "General" when unknown.
//   - TransactionType: INCOME, EXPENSE, LOAN or BORROW.
//   - PaymentMethod / Counterparty: optional details.
type Finance struct {
	ID              int64           `json:"id"               gorm:"primaryKey;autoIncrement"`
	UserID          int64           `json:"user_id"          gorm:"not null;index:idx_finance_user_date,priority:1"`
	TransactionDate Date            `json:"transaction_date" gorm:"type:date;not null;index:idx_finance_user_date,priority:2"`
	Description     string          `json:"description"      gorm:"type:varchar(255);not null"`
	Amount          decimal.Decimal `json:"amount"           gorm:"type:decimal(12,2);not null"`
	Category        string          `json:"category"         gorm:"type:varchar(64);not null;default:'General'"`
	TransactionType TransactionType `json:"transaction_type" gorm:"type:varchar(16);not null;check:transaction_type IN ('INCOME','EXPENSE','LOAN','BORROW')"`
	PaymentMethod   string          `json:"payment_method,omitempty" gorm:"type:varchar(32)"`
	Counterparty    string          `json:"counterparty,omitempty"   gorm:"type:varchar(128)"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Finance.
func (Finance) TableName() string { return FinanceTable }

// Task is a to-do item owned by a user.
type Task struct {
	ID             int64     `json:"id"              gorm:"primaryKey;autoIncrement"`
	UserID         int64     `json:"user_id"         gorm:"not null;index:idx_task_user_due,priority:1"`
	Title          string    `json:"title"           gorm:"type:varchar(255);not null"`
	Description    string    `json:"description"     gorm:"type:text;not null;default:'Added via chatbot'"`
	Priority       Priority  `json:"priority"        gorm:"type:varchar(8);not null;default:'medium';check:priority IN ('high','medium','low')"`
	DueDate        *Date     `json:"due_date"        gorm:"type:date;index:idx_task_user_due,priority:2"`
	Type           TaskType  `json:"type"            gorm:"type:varchar(16);not null;default:'personal';check:type IN ('official','family','personal')"`
	DateAdded      Date      `json:"date_added"      gorm:"type:date;not null"`
	Completed      bool      `json:"completed"       gorm:"not null;default:false"`
	CompletionDate *Date     `json:"completion_date" gorm:"type:date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for Task.
func (Task) TableName() string { return TaskTable }
