package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-arth-chatbot/internal/intent"
	"github.com/tbourn/go-arth-chatbot/internal/slots"
	"github.com/tbourn/go-arth-chatbot/internal/sqlguard"
)

// now is swapped in tests so relative dates are stable.
var now = time.Now

type classifyOutput struct {
	Intent    intent.Intent `json:"intent"`
	QueryType string        `json:"query_type"`
	Slots     slots.Slots   `json:"slots,omitempty"`
	Missing   []string      `json:"missing,omitempty"`
}

func newClassifyCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Print the intent and extracted slots of a query as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			in := intent.Classify(text)
			out := classifyOutput{Intent: in, QueryType: in.QueryType()}
			if in.Operation == intent.Create {
				s := slots.New(nil).Extract(in.Domain, text, now())
				out.Slots = s
				out.Missing = s.Missing()
			}
			return printJSON(stdout, out)
		},
	}
}

type checkSQLOutput struct {
	Valid  bool   `json:"valid"`
	SQL    string `json:"sql,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func newCheckSQLCmd(stdout io.Writer) *cobra.Command {
	var (
		domainFlag string
		tenant     int64
	)
	cmd := &cobra.Command{
		Use:   "check-sql <sql>",
		Short: "Run a query through the validator and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			d, ok := intent.ParseDomain(domainFlag)
			if !ok {
				return fmt.Errorf("unknown domain %q (want finance or task)", domainFlag)
			}
			if tenant <= 0 {
				return errors.New("--tenant must be a positive user id")
			}
			vq, err := sqlguard.MustNew(sqlguard.DefaultPolicy()).Validate(args[0], d, tenant)
			var rej *sqlguard.Rejection
			switch {
			case errors.As(err, &rej):
				return printJSON(stdout, checkSQLOutput{Reason: string(rej.Reason), Detail: rej.Detail})
			case err != nil:
				return err
			}
			return printJSON(stdout, checkSQLOutput{Valid: true, SQL: vq.SQL(), Limit: vq.Limit()})
		},
	}
	cmd.Flags().StringVar(&domainFlag, "domain", "finance", "finance or task")
	cmd.Flags().Int64Var(&tenant, "tenant", 0, "user id the query is scoped to")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
