// Package services – ChatbotService
//
// ChatbotService turns one free-text question into one reply. Create
// requests are classified, sliced into fields and stored. Read requests are
// sent to the SQL generator; the SQL it returns is validated, scoped to the
// tenant, executed and formatted.
//
// Every path ends in a Reply. Failures are logged with their cause and
// counted per outcome, but users only ever see the fixed messages of the
// reply package.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/go-arth-chatbot/internal/intent"
	"github.com/tbourn/go-arth-chatbot/internal/observability"
	"github.com/tbourn/go-arth-chatbot/internal/reply"
	"github.com/tbourn/go-arth-chatbot/internal/repo"
	"github.com/tbourn/go-arth-chatbot/internal/slots"
	"github.com/tbourn/go-arth-chatbot/internal/sqlgen"
	"github.com/tbourn/go-arth-chatbot/internal/sqlguard"
)

// MinQueryRunes is the shortest accepted question.
const MinQueryRunes = 3

// Outcomes recorded per processed query.
const (
	OutcomeCreated         = "created"
	OutcomeAnswered        = "answered"
	OutcomeEmpty           = "empty"
	OutcomeNeedsInput      = "needs_input"
	OutcomeGeneratorFailed = "generator_failed"
	OutcomeRejected        = "rejected"
	OutcomeDBFailed        = "db_failed"
	OutcomeInternal        = "internal"
)

// Generator produces SQL for a read request.
type Generator interface {
	Generate(ctx context.Context, req sqlgen.Request) (sqlgen.Result, error)
	Healthy(ctx context.Context) bool
}

// Runner executes a validated query.
type Runner interface {
	Run(ctx context.Context, q sqlguard.ValidatedQuery) (repo.ResultSet, error)
}

// Pinger reports database reachability (*sql.DB satisfies it).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Reply is what the chatbot says back.
type Reply struct {
	Message   string `json:"message"`
	Success   bool   `json:"success"`
	QueryType string `json:"query_type"`
	// Outcome is for metrics and logs only.
	Outcome string `json:"-"`
}

// Health is the chatbot's dependency status.
type Health struct {
	Status             string `json:"status"`
	GeneratorAvailable bool   `json:"sql_generator_available"`
	DatabaseAvailable  bool   `json:"database_available"`
}

// ChatbotService runs the question-to-reply pipeline.
type ChatbotService struct {
	Extractor *slots.Extractor
	Finance   *FinanceService
	Tasks     *TaskService
	Generator Generator
	Validator *sqlguard.Validator
	Runner    Runner
	DB        Pinger

	Dialect       sqlgen.Dialect
	MaxQueryRunes int
	HealthTimeout time.Duration
	Now           func() time.Time
}

// CheckQuery reports whether text is an acceptable question length.
func (s *ChatbotService) CheckQuery(text string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n < MinQueryRunes {
		return ErrEmptyQuery
	}
	if s.MaxQueryRunes > 0 && n > s.MaxQueryRunes {
		return ErrQueryTooLong
	}
	return nil
}

// Process answers text on behalf of tenant. It never fails; failures become
// replies with Success=false.
func (s *ChatbotService) Process(ctx context.Context, text string, tenant int64) (rep Reply) {
	tr := otel.Tracer("services/ChatbotService")
	ctx, span := tr.Start(ctx, "Process",
		trace.WithAttributes(attribute.Int64("tenant.id", tenant)),
	)
	defer span.End()

	lg := zerolog.Ctx(ctx)
	in := intent.Classify(text)
	rep.QueryType = in.QueryType()
	span.SetAttributes(attribute.String("chatbot.query_type", rep.QueryType))

	defer func() {
		if r := recover(); r != nil {
			lg.Error().Interface("panic", r).Str("query_type", rep.QueryType).Msg("chatbot pipeline panicked")
			rep = Reply{Message: reply.Internal, QueryType: rep.QueryType, Outcome: OutcomeInternal}
		}
		span.SetAttributes(attribute.String("chatbot.outcome", rep.Outcome))
		if !rep.Success {
			span.SetStatus(codes.Error, rep.Outcome)
		}
		observability.ObserveChatbot(rep.QueryType, rep.Outcome)
	}()

	ev := lg.Info()
	if in.Defaulted {
		ev = lg.Warn()
		observability.ObserveDefaultedDomain()
	}
	ev.Str("domain", string(in.Domain)).
		Str("operation", string(in.Operation)).
		Bool("defaulted", in.Defaulted).
		Msg("query classified")

	if tenant <= 0 {
		lg.Error().Int64("tenant_id", tenant).Msg("chatbot called without a tenant")
		return fail(rep, reply.Internal, OutcomeInternal)
	}

	if in.Operation == intent.Create {
		return s.create(ctx, rep, in, text, tenant)
	}
	return s.read(ctx, rep, in, text, tenant)
}

func (s *ChatbotService) create(ctx context.Context, rep Reply, in intent.Intent, text string, tenant int64) Reply {
	lg := zerolog.Ctx(ctx)
	now := nowFn(s.Now)()

	switch v := s.Extractor.Extract(in.Domain, text, now).(type) {
	case slots.FinanceSlots:
		if v.Amount == nil {
			return fail(rep, reply.MissingAmount, OutcomeNeedsInput)
		}
		f, err := s.Finance.Create(ctx, tenant, v)
		if err != nil {
			lg.Error().Err(err).Msg("finance create failed")
			return fail(rep, reply.FinanceCreateFailed, OutcomeDBFailed)
		}
		lg.Info().Int64("finance_id", f.ID).Msg("finance record created")
		return succeed(rep, reply.FinanceCreated(f), OutcomeCreated)

	case slots.TaskSlots:
		if v.Title == "" {
			return fail(rep, reply.MissingTitle, OutcomeNeedsInput)
		}
		t, err := s.Tasks.Create(ctx, tenant, v)
		if err != nil {
			lg.Error().Err(err).Msg("task create failed")
			return fail(rep, reply.TaskCreateFailed, OutcomeDBFailed)
		}
		lg.Info().Int64("task_id", t.ID).Msg("task created")
		return succeed(rep, reply.TaskCreated(t), OutcomeCreated)
	}
	return fail(rep, reply.Internal, OutcomeInternal)
}

func (s *ChatbotService) read(ctx context.Context, rep Reply, in intent.Intent, text string, tenant int64) Reply {
	lg := zerolog.Ctx(ctx)

	req := sqlgen.BuildRequest(text, tenant, in.Domain, nowFn(s.Now)(), s.Dialect)
	gen, err := s.Generator.Generate(ctx, req)
	if err != nil {
		lg.Warn().Err(err).Msg("sql generation failed")
		return fail(rep, reply.GeneratorFailed, OutcomeGeneratorFailed)
	}

	validator := s.Validator
	if validator == nil {
		validator = sqlguard.Default()
	}
	q, err := validator.Validate(gen.SQL, in.Domain, tenant)
	if err != nil {
		var rej *sqlguard.Rejection
		if errors.As(err, &rej) {
			observability.ObserveRejection(string(rej.Reason))
			lg.Warn().Str("reason", string(rej.Reason)).Msg("generated sql rejected")
			lg.Debug().Str("sql", gen.SQL).Str("detail", rej.Detail).Msg("rejected sql")
			return fail(rep, reply.Rejected, OutcomeRejected)
		}
		lg.Error().Err(err).Msg("validator failed")
		return fail(rep, reply.Internal, OutcomeInternal)
	}

	rs, err := s.Runner.Run(ctx, q)
	if err != nil {
		lg.Error().Err(err).Msg("read query failed")
		return fail(rep, reply.DatabaseFailed, OutcomeDBFailed)
	}
	observability.ObserveRows(len(rs.Rows))

	if len(rs.Rows) == 0 {
		return fail(rep, reply.NoResults, OutcomeEmpty)
	}
	return succeed(rep, reply.Format(in.Domain, rs.Columns, rs.Rows), OutcomeAnswered)
}

// Health probes the database and the generator concurrently.
func (s *ChatbotService) Health(ctx context.Context) Health {
	timeout := s.HealthTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var h Health
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.DatabaseAvailable = s.DB != nil && s.DB.PingContext(gctx) == nil
		return nil
	})
	g.Go(func() error {
		h.GeneratorAvailable = s.Generator != nil && s.Generator.Healthy(gctx)
		return nil
	})
	_ = g.Wait()

	h.Status = "healthy"
	if !h.DatabaseAvailable || !h.GeneratorAvailable {
		h.Status = "degraded"
	}
	return h
}

func succeed(rep Reply, msg, outcome string) Reply {
	rep.Message, rep.Success, rep.Outcome = msg, true, outcome
	return rep
}

func fail(rep Reply, msg, outcome string) Reply {
	rep.Message, rep.Success, rep.Outcome = msg, false, outcome
	return rep
}
