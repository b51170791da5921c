// Command ovpnkeys manages an OpenVPN certificate authority and the
// client and server profiles issued by it.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ovpnkeys/ovpnkeys/internal/config"
)

// Build-time variables (injected by the release build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath   string
	auditLogPath string
	verbosity    string
)

// Environment variables read when the matching flag is unset.
const (
	envConfig   = "OVPNKEYS_CONFIG"
	envAuditLog = "OVPNKEYS_AUDIT_LOG"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ovpnkeys <init|server|client|crl|revoke>",
	Short: "Manage OVPN profiles",
	Long: `ovpnkeys runs a small OpenVPN certificate authority on top of openssl.

It creates the CA, issues server and client certificates, renders a
self-contained .ovpn profile for each of them and keeps the CRL current,
optionally uploading it to a crlreceiver endpoint.

Settings are read from the ovpnkeys section of ovpnkeys.yaml.

Examples:
  # Create the CA directory, root certificate, tls-auth key and first CRL
  ovpnkeys init

  # Issue a server certificate and profile
  ovpnkeys server --name vpn.example.com --nopass

  # Issue a client profile, overriding the configured organizational unit
  ovpnkeys client --name alice --ou Engineering

  # Revoke a client and publish the new CRL
  ovpnkeys revoke --name alice

  # Regenerate and publish the CRL
  ovpnkeys crl`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	ValidArgs:     []string{typeInit, typeServer, typeClient, typeCRL, typeRevoke},
	Args:          cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(verbosity)
		if err != nil {
			return fmt.Errorf("invalid verbosity %q: %w", verbosity, err)
		}
		logrus.SetLevel(level)
		logrus.SetOutput(cmd.ErrOrStderr())

		if !cmd.Flags().Changed("config") {
			if env := os.Getenv(envConfig); env != "" {
				configPath = env
			}
		}
		if auditLogPath == "" {
			auditLogPath = os.Getenv(envAuditLog)
		}
		return nil
	},
	RunE: runRoot,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath,
		"Path to the configuration file (or set "+envConfig+")")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set "+envAuditLog+" or audit_log in the config)")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", logrus.InfoLevel.String(),
		"Log level (debug, info, warn, error)")

	rootFlags := rootCmd.Flags()
	rootFlags.StringVar(&rootName, "name", "", "Subject name (CN)")
	rootFlags.StringVar(&rootCountry, "country", "", "Subject country")
	rootFlags.StringVar(&rootState, "state", "", "Subject state")
	rootFlags.StringVar(&rootOrg, "org", "", "Subject organization")
	rootFlags.StringVar(&rootOU, "ou", "", "Subject organization unit")
	rootFlags.StringVar(&rootEmail, "email", "", "Subject email")
	rootFlags.BoolVar(&rootNoPass, "nopass", false, "Do not encrypt the private key")

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(scaffoldCmd)
}
