// Package reply renders everything the chatbot says back to a user: query
// results and the fixed messages for each pipeline outcome.
//
// Failure messages are deliberately uniform. They never include SQL text,
// database errors or the name of the validator rule that fired.
package reply

import (
	"fmt"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
)

const (
	MissingAmount   = "Please specify the amount for the finance record."
	MissingTitle    = "Please specify a title for the task."
	GeneratorFailed = "I couldn't generate a proper query for your request. Please try rephrasing."
	Rejected        = "I cannot execute this type of query for security reasons. Please try a different request."
	DatabaseFailed  = "I encountered a database error. Please try a simpler query."
	Internal        = "I encountered an error while processing your request. Please try again with a simpler query."
	NoResults       = "I didn't find any data matching your query. Try asking about different time periods or categories."

	FinanceCreateFailed = "I couldn't create the finance record. Please check the details and try again."
	TaskCreateFailed    = "I couldn't create the task. Please check the details and try again."
)

// FinanceCreated confirms a stored finance record.
func FinanceCreated(f *domain.Finance) string {
	return fmt.Sprintf("✅ Finance record created successfully!\nAmount: ₹%s\nType: %s\nCategory: %s\nDate: %s\nDescription: %s",
		f.Amount.StringFixed(2), f.TransactionType, f.Category, f.TransactionDate, f.Description)
}

// TaskCreated confirms a stored task.
func TaskCreated(t *domain.Task) string {
	due := "Not set"
	if t.DueDate != nil && !t.DueDate.IsZero() {
		due = t.DueDate.String()
	}
	return fmt.Sprintf("✅ Task created successfully!\nTitle: %s\nPriority: %s\nType: %s\nDue Date: %s\nDescription: %s",
		t.Title, t.Priority, t.Type, due, t.Description)
}
