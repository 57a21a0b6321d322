package sqlgen

import (
	"fmt"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
	"github.com/tbourn/go-arth-chatbot/internal/intent"
)

const financeSchema = `TABLE: finance
COLUMNS:
- id (INTEGER, PRIMARY KEY): record id
- user_id (INTEGER, NOT NULL): owner of the record
- transaction_date (DATE, NOT NULL, 'YYYY-MM-DD'): day the money moved
- description (VARCHAR, NOT NULL): what the transaction was for
- amount (DECIMAL, NOT NULL): positive amount in rupees
- category (VARCHAR, NOT NULL): Food, Transportation, Entertainment, Utilities, Shopping, Healthcare, General
- transaction_type (VARCHAR, NOT NULL): 'INCOME', 'EXPENSE', 'LOAN', 'BORROW'
- payment_method (VARCHAR): upi, card, bank transfer, wallet, cash
- counterparty (VARCHAR): person or business on the other side
- created_at (TIMESTAMP), updated_at (TIMESTAMP)

NOTES:
- Always filter by user_id.
- Use SUM(amount) AS total, COUNT(*) AS count or AVG(amount) AS avg for summaries.`

const taskSchema = `TABLE: task
COLUMNS:
- id (INTEGER, PRIMARY KEY): task id
- user_id (INTEGER, NOT NULL): owner of the task
- title (VARCHAR, NOT NULL): short title
- description (TEXT, NOT NULL): details, 'Added via chatbot' when none were given
- priority (VARCHAR): 'high', 'medium', 'low'
- due_date (DATE, 'YYYY-MM-DD'): when the task is due, may be NULL
- type (VARCHAR): 'official', 'family', 'personal'
- date_added (DATE): day the task was created
- completed (BOOLEAN, 0 or 1): completion flag
- completion_date (DATE): day it was completed, may be NULL

NOTES:
- Always filter by user_id.
- Pending tasks have completed = 0.`

// SchemaText documents the one table a domain may read.
func SchemaText(d intent.Domain) string {
	if d == intent.Task {
		return taskSchema
	}
	return financeSchema
}

type example struct {
	question string
	sql      string
}

// examples are NL->SQL pairs written for the dialect and today's date.
func examples(d intent.Domain, tenant int64, today domain.Date, dialect Dialect) []example {
	month := monthFilter(dialect, "transaction_date", today)
	if d == intent.Task {
		return []example{
			{"what tasks are due today", fmt.Sprintf("SELECT * FROM task WHERE user_id = %d AND due_date = '%s' AND completed = 0", tenant, today)},
			{"show my high priority tasks", fmt.Sprintf("SELECT * FROM task WHERE user_id = %d AND priority = 'high' ORDER BY due_date", tenant)},
			{"how many tasks did I complete this month", fmt.Sprintf("SELECT COUNT(*) AS count FROM task WHERE user_id = %d AND completed = 1 AND %s", tenant, monthFilter(dialect, "completion_date", today))},
		}
	}
	return []example{
		{"show my expenses this month", fmt.Sprintf("SELECT * FROM finance WHERE user_id = %d AND transaction_type = 'EXPENSE' AND %s", tenant, month)},
		{"how much did I spend on food", fmt.Sprintf("SELECT SUM(amount) AS total FROM finance WHERE user_id = %d AND transaction_type = 'EXPENSE' AND category = 'Food'", tenant)},
		{"what did I spend yesterday", fmt.Sprintf("SELECT * FROM finance WHERE user_id = %d AND transaction_date = '%s'", tenant, today.AddDays(-1))},
		{"total income by category", fmt.Sprintf("SELECT category, SUM(amount) AS total FROM finance WHERE user_id = %d AND transaction_type = 'INCOME' GROUP BY category", tenant)},
	}
}

func monthFilter(dialect Dialect, column string, today domain.Date) string {
	if dialect == DialectMySQL {
		return fmt.Sprintf("MONTH(%s) = %d AND YEAR(%s) = %d", column, int(today.Month()), column, today.Year())
	}
	return fmt.Sprintf("strftime('%%Y-%%m', %s) = '%s'", column, today.Format("2006-01"))
}
