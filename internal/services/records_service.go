package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-arth-chatbot/internal/domain"
	"github.com/tbourn/go-arth-chatbot/internal/repo"
	"github.com/tbourn/go-arth-chatbot/internal/slots"
)

// FinanceService persists finance records created through the chatbot.
type FinanceService struct {
	DB *gorm.DB
	// Now supplies "today" for records without a date. Defaults to time.Now.
	Now func() time.Time
}

// Create stores a finance record for tenant from extracted slots, filling
// category, type, date and description defaults.
func (s *FinanceService) Create(ctx context.Context, tenant int64, in slots.FinanceSlots) (*domain.Finance, error) {
	tr := otel.Tracer("services/FinanceService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.Int64("tenant.id", tenant)),
	)
	defer span.End()

	if tenant <= 0 {
		return nil, ErrInvalidTenant
	}
	if in.Amount == nil {
		return nil, ErrMissingAmount
	}

	f := &domain.Finance{
		UserID:          tenant,
		Amount:          in.Amount.Round(2),
		Category:        orDefault(in.Category, domain.DefaultCategory),
		TransactionType: in.TransactionType,
		Description:     orDefault(in.Description, domain.DefaultDescription),
		PaymentMethod:   in.PaymentMethod,
		Counterparty:    in.Counterparty,
	}
	if f.TransactionType == "" {
		f.TransactionType = domain.TransactionExpense
	}
	if f.Amount.LessThan(decimal.Zero) {
		f.Amount = f.Amount.Neg()
	}
	if in.Date != nil && !in.Date.IsZero() {
		f.TransactionDate = *in.Date
	} else {
		f.TransactionDate = domain.DateOf(nowFn(s.Now)())
	}

	if err := repo.CreateFinance(ctx, s.DB, f); err != nil {
		return nil, err
	}
	return f, nil
}

// TaskService persists tasks created through the chatbot.
type TaskService struct {
	DB  *gorm.DB
	Now func() time.Time
}

// Create stores a task for tenant from extracted slots, filling priority,
// type and description defaults. DateAdded is today.
func (s *TaskService) Create(ctx context.Context, tenant int64, in slots.TaskSlots) (*domain.Task, error) {
	tr := otel.Tracer("services/TaskService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.Int64("tenant.id", tenant)),
	)
	defer span.End()

	if tenant <= 0 {
		return nil, ErrInvalidTenant
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	t := &domain.Task{
		UserID:      tenant,
		Title:       title,
		Description: orDefault(in.Description, domain.DefaultDescription),
		Priority:    in.Priority,
		Type:        in.Type,
		DateAdded:   domain.DateOf(nowFn(s.Now)()),
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.Type == "" {
		t.Type = domain.TaskPersonal
	}
	if in.DueDate != nil && !in.DueDate.IsZero() {
		due := *in.DueDate
		t.DueDate = &due
	}

	if err := repo.CreateTask(ctx, s.DB, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RecordService lists a tenant's stored records for the REST endpoints.
type RecordService struct {
	DB *gorm.DB
}

// ListFinance returns a page of finance records, newest first, with the total.
func (s *RecordService) ListFinance(ctx context.Context, tenant int64, page, pageSize int) ([]domain.Finance, int64, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "ListFinance",
		trace.WithAttributes(
			attribute.Int64("tenant.id", tenant),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if tenant <= 0 {
		return nil, 0, ErrInvalidTenant
	}
	page, pageSize = normalizePage(page, pageSize)

	total, err := repo.CountFinance(ctx, s.DB, tenant)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Finance{}, 0, nil
	}
	items, err := repo.ListFinancePage(ctx, s.DB, tenant, (page-1)*pageSize, pageSize)
	return items, total, err
}

// ListTasks returns a page of tasks, open ones first, with the total.
func (s *RecordService) ListTasks(ctx context.Context, tenant int64, page, pageSize int) ([]domain.Task, int64, error) {
	tr := otel.Tracer("services/RecordService")
	ctx, span := tr.Start(ctx, "ListTasks",
		trace.WithAttributes(
			attribute.Int64("tenant.id", tenant),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if tenant <= 0 {
		return nil, 0, ErrInvalidTenant
	}
	page, pageSize = normalizePage(page, pageSize)

	total, err := repo.CountTasks(ctx, s.DB, tenant)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Task{}, 0, nil
	}
	items, err := repo.ListTasksPage(ctx, s.DB, tenant, (page-1)*pageSize, pageSize)
	return items, total, err
}

// FinanceStats returns the count and latest update time used for ETags.
func (s *RecordService) FinanceStats(ctx context.Context, tenant int64) (int64, *time.Time, error) {
	return repo.FinanceStats(ctx, s.DB, tenant)
}

// TasksStats returns the count and latest update time used for ETags.
func (s *RecordService) TasksStats(ctx context.Context, tenant int64) (int64, *time.Time, error) {
	return repo.TasksStats(ctx, s.DB, tenant)
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return page, pageSize
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

func nowFn(f func() time.Time) func() time.Time {
	if f != nil {
		return f
	}
	return time.Now
}
