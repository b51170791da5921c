package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ovpnkeys/ovpnkeys/internal/audit"
	"github.com/ovpnkeys/ovpnkeys/internal/ca"
	"github.com/ovpnkeys/ovpnkeys/internal/cli"
	"github.com/ovpnkeys/ovpnkeys/internal/config"
	"github.com/ovpnkeys/ovpnkeys/internal/crl"
	"github.com/ovpnkeys/ovpnkeys/internal/openssl"
	"github.com/ovpnkeys/ovpnkeys/internal/runner"
	"github.com/ovpnkeys/ovpnkeys/internal/subject"
)

// Command types.
const (
	typeInit   = "init"
	typeServer = "server"
	typeClient = "client"
	typeCRL    = "crl"
	typeRevoke = "revoke"
)

var (
	rootName    string
	rootCountry string
	rootState   string
	rootOrg     string
	rootOU      string
	rootEmail   string
	rootNoPass  bool
)

// Overridden in tests.
var (
	newRunner = func(cmd *cobra.Command) runner.Runner {
		return &runner.Exec{Stdin: cmd.InOrStdin(), Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
	}
	newFs = afero.NewOsFs
)

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	authority, closeAudit, err := newCA(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeAudit(); cerr != nil {
			logrus.Errorf("failed to close audit log: %v", cerr)
		}
	}()

	ctx := cmd.Context()
	switch args[0] {
	case typeInit:
		return authority.Init(ctx, rootNoPass)
	case typeServer, typeClient:
		if rootName == "" {
			return ca.ErrNameRequired
		}
		_, err := authority.Create(ctx, ca.IssueRequest{
			Subject: subject.Fields{
				Name:               rootName,
				Country:            rootCountry,
				State:              rootState,
				Organization:       rootOrg,
				OrganizationalUnit: rootOU,
				Email:              rootEmail,
			},
			Type:   ca.CertType(args[0]),
			NoPass: rootNoPass,
		})
		return err
	case typeRevoke:
		if rootName == "" {
			return ca.ErrNameRequired
		}
		return authority.Revoke(ctx, rootName)
	case typeCRL:
		return authority.UpdateCRL(ctx)
	}
	return fmt.Errorf("%w: %q", ca.ErrUnknownType, args[0])
}

// newCA wires a CA from configuration. The returned function closes the
// audit log.
func newCA(cmd *cobra.Command, cfg *config.Config) (*ca.CA, func() error, error) {
	timeout, err := cfg.Duration("crl_updater_timeout", crl.DefaultTimeout)
	if err != nil {
		return nil, nil, err
	}

	logPath := auditLogPath
	if logPath == "" {
		logPath = cfg.GetDefault("audit_log", "")
	}
	auditWriter, err := audit.OpenDeferred(logPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize audit log: %w", err)
	}

	authority := ca.New(ca.Options{
		Config: cfg,
		Store:  ca.NewStore(newFs(), cfg.Dir()),
		Toolkit: &openssl.Toolkit{
			Runner:  newRunner(cmd),
			Binary:  cfg.GetDefault("openssl_bin", "openssl"),
			OpenVPN: cfg.GetDefault("openvpn_bin", "openvpn"),
			Config:  cfg.GetDefault("openssl_config", "./openssl.cnf"),
			Env:     cfg.Env(),
		},
		Publisher: crl.NewPublisher(cfg.GetDefault("crl_updater", ""), timeout),
		Audit:     auditWriter,
		Prompt: func(question string) (bool, error) {
			return cli.YesNo(cmd.InOrStdin(), cmd.OutOrStdout(), question, cli.DefaultAttempts)
		},
		Out: cmd.OutOrStdout(),
	})
	return authority, auditWriter.Close, nil
}

