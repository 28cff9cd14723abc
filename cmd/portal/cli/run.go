// Package cli implements the operational subcommands of the portal binary.
package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/thvgger/igs-portal/internal/ledger"
)

const usage = `usage:
  portal jobs trigger -job ledger:balance_integrity
  portal jobs trigger -job ledger:fee_batch -name NAME -amount AMOUNT -session ID -term ID [-class ID]
  portal jobs stats [-json]`

// Run dispatches "jobs" subcommands. args excludes the program name and the
// leading "jobs" word.
func Run(ctx context.Context, c *JobsCLI, args []string, stdout, stderr io.Writer) int {
	stdout, stderr = outputs(stdout, stderr)
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, usage)
		return 2
	}
	switch args[0] {
	case "trigger":
		fs := flag.NewFlagSet("jobs trigger", flag.ContinueOnError)
		fs.SetOutput(stderr)
		job := fs.String("job", "", "task type to enqueue")
		name := fs.String("name", "", "fee name")
		amount := fs.String("amount", "", "fee amount in Naira")
		session := fs.Int64("session", 0, "session id")
		term := fs.Int64("term", 0, "term id")
		class := fs.Int64("class", 0, "restrict the fee to one class")
		asJSON := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		fee := ledger.NewFeeInput{Name: *name, SessionID: *session, TermID: *term}
		if *amount != "" {
			value, err := decimal.NewFromString(*amount)
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "jobs trigger: invalid amount %q\n", *amount)
				return 2
			}
			fee.Amount = value
		}
		if *class > 0 {
			fee.ClassID = class
		}
		return c.TriggerCommand(ctx, TriggerOptions{Job: *job, Fee: fee, JSONOutput: *asJSON, Stdout: stdout, Stderr: stderr})
	case "stats":
		fs := flag.NewFlagSet("jobs stats", flag.ContinueOnError)
		fs.SetOutput(stderr)
		asJSON := fs.Bool("json", false, "print JSON")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		return c.StatsCommand(*asJSON, stdout, stderr)
	default:
		_, _ = fmt.Fprintln(stderr, usage)
		return 2
	}
}
