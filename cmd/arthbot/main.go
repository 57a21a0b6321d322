// Command arthbot runs the finance and task chatbot service and offers
// operator tools for its classifier and query validator.
//
//	arthbot serve
//	arthbot classify "add expense 500 for groceries today"
//	arthbot check-sql --domain finance --tenant 42 "SELECT * FROM finance"
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "arthbot",
		Short:         "Finance and task chatbot over safe, tenant-scoped SQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.AddCommand(
		newServeCmd(),
		newClassifyCmd(stdout),
		newCheckSQLCmd(stdout),
	)
	return root
}
