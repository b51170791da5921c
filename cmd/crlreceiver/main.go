// Command crlreceiver accepts CRL uploads from ovpnkeys and keeps the
// CRL file used by OpenVPN servers current.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ovpnkeys/ovpnkeys/internal/audit"
	"github.com/ovpnkeys/ovpnkeys/internal/crlstore"
	"github.com/ovpnkeys/ovpnkeys/internal/receiver"
)

// Build-time variables (injected by the release build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	listenAddr   string
	rootCertPath string
	currentPath  string
	dbPath       string
	maxSize      int64
	auditLogPath string
	verbosity    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crlreceiver",
	Short: "Receive and serve OpenVPN CRLs",
	Long: `crlreceiver accepts POST requests with a JSON body {"crl": "<pem>"}.

An upload is accepted when the CRL is signed by the root certificate and
its CRL number is greater than every CRL seen before. Accepted CRLs are
archived and replace the current CRL file.

Endpoints:
  POST /        - upload a CRL
  GET  /crl     - latest accepted CRL
  GET  /health  - health check

Examples:
  crlreceiver --root-cert root.crt --current /etc/openvpn/crl.pem --db crls.db`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runServe,
}

func init() {
	defaults := receiver.DefaultServerConfig()

	flags := rootCmd.Flags()
	flags.StringVar(&listenAddr, "listen", defaults.Listen, "Address to listen on")
	flags.StringVar(&rootCertPath, "root-cert", "update_vpn_crl.root.crt", "Root certificate CRLs must be signed by")
	flags.StringVar(&currentPath, "current", "vpn.crl", "Where to store the current CRL")
	flags.StringVar(&dbPath, "db", "crls.db", "CRL archive database")
	flags.Int64Var(&maxSize, "max-size", receiver.DefaultMaxSize, "Largest accepted CRL in bytes")
	flags.StringVar(&auditLogPath, "audit-log", "", "Path to audit log file")
	flags.StringVarP(&verbosity, "verbosity", "v", logrus.InfoLevel.String(), "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(verbosity)
	if err != nil {
		return fmt.Errorf("invalid verbosity %q: %w", verbosity, err)
	}
	logrus.SetLevel(level)

	fs := afero.NewOsFs()
	verifier, err := receiver.LoadVerifier(fs, rootCertPath)
	if err != nil {
		return err
	}

	store, err := crlstore.Open(dbPath, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	auditWriter, err := audit.Open(auditLogPath)
	if err != nil {
		return fmt.Errorf("failed to initialize audit log: %w", err)
	}
	defer auditWriter.Close()

	h := receiver.NewHandler(receiver.Options{
		Fs:       fs,
		Verifier: verifier,
		Store:    store,
		Current:  currentPath,
		MaxSize:  maxSize,
		Audit:    auditWriter,
	})

	cfg := receiver.DefaultServerConfig()
	cfg.Listen = listenAddr
	logrus.Infof("Root certificate: %s (%s)", rootCertPath, verifier.Root.Subject)
	return receiver.Serve(cmd.Context(), cfg, receiver.NewRouter(h))
}
