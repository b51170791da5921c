package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ovpnkeys/ovpnkeys/internal/audit"
	"github.com/ovpnkeys/ovpnkeys/internal/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log management",
	Long: `Commands for verifying and reading the audit log.

The audit log records every CA creation, issuance, revocation and CRL
update. Each event is chained to the previous one with a SHA-256 hash.

Examples:
  # Verify audit log integrity
  ovpnkeys audit verify --log ca/audit.jsonl

  # Show last 10 events
  ovpnkeys audit tail --log ca/audit.jsonl -n 10`,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify audit log integrity",
	Long: `Verify the hash chain of an audit log file.

The chain starts with hash_prev="sha256:genesis" for the first event.
If events were modified, deleted or inserted, the first broken link is
reported.`,
	Args: cobra.NoArgs,
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent audit events",
	Args:  cobra.NoArgs,
	RunE:  runAuditTail,
}

var (
	auditLogFile  string
	auditTailNum  int
	auditShowJSON bool
)

func init() {
	auditVerifyCmd.Flags().StringVar(&auditLogFile, "log", "", "Path to audit log file (required)")
	_ = auditVerifyCmd.MarkFlagRequired("log")

	auditTailCmd.Flags().StringVar(&auditLogFile, "log", "", "Path to audit log file (required)")
	_ = auditTailCmd.MarkFlagRequired("log")
	auditTailCmd.Flags().IntVarP(&auditTailNum, "num", "n", 10, "Number of events to show")
	auditTailCmd.Flags().BoolVar(&auditShowJSON, "json", false, "Output as JSON")

	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Verifying audit log: %s\n\n", auditLogFile)

	count, err := audit.VerifyChain(auditLogFile)
	if err != nil {
		fmt.Fprintf(out, "VERIFICATION FAILED\n")
		fmt.Fprintf(out, "  Valid events: %d\n", count)
		return fmt.Errorf("audit log verification failed: %w", err)
	}

	fmt.Fprintf(out, "VERIFICATION PASSED\n")
	fmt.Fprintf(out, "  Total events: %d\n", count)
	fmt.Fprintf(out, "  Hash chain: VALID\n")
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	events, err := audit.ReadEvents(auditLogFile)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}
	if len(events) == 0 {
		fmt.Fprintln(out, "Audit log is empty")
		return nil
	}

	if auditTailNum > 0 && len(events) > auditTailNum {
		events = events[len(events)-auditTailNum:]
	}

	if auditShowJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}

	for i := range events {
		printEvent(out, &events[i])
	}
	return nil
}

func printEvent(out io.Writer, e *audit.Event) {
	fmt.Fprintf(out, "[%s] %s %s\n", e.Timestamp, cli.FormatStatus(string(e.Result)), e.EventType)
	fmt.Fprintf(out, "    Actor:  %s@%s\n", e.Actor.ID, e.Actor.Host)

	if e.Object.Type != "" {
		fmt.Fprintf(out, "    Object: %s", e.Object.Type)
		if e.Object.Name != "" {
			fmt.Fprintf(out, " name=%s", e.Object.Name)
		}
		if e.Object.Serial != "" {
			fmt.Fprintf(out, " serial=%s", e.Object.Serial)
		}
		if e.Object.Subject != "" {
			fmt.Fprintf(out, " subject=%s", e.Object.Subject)
		}
		if e.Object.Path != "" {
			fmt.Fprintf(out, " path=%s", e.Object.Path)
		}
		fmt.Fprintln(out)
	}

	c := e.Context
	if c.CertType != "" || c.Endpoint != "" || c.Reason != "" {
		fmt.Fprint(out, "    Context:")
		if c.CertType != "" {
			fmt.Fprintf(out, " type=%s", c.CertType)
		}
		if c.Endpoint != "" {
			fmt.Fprintf(out, " endpoint=%s status=%d", c.Endpoint, c.Status)
		}
		if c.Reason != "" {
			fmt.Fprintf(out, " reason=%s", c.Reason)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out)
}
