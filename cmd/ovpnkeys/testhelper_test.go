package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ovpnkeys/ovpnkeys/internal/config"
	"github.com/ovpnkeys/ovpnkeys/internal/runner"
	"github.com/ovpnkeys/ovpnkeys/internal/testutil"
	"github.com/ovpnkeys/ovpnkeys/profiles"
)

// executeCommand executes a Cobra command with the given args and returns output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	return executeCommandWithInput(root, "", args...)
}

// executeCommandWithInput is executeCommand with stdin set to input.
func executeCommandWithInput(root *cobra.Command, input string, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(args)

	err = root.Execute()
	return buf.String(), err
}

// resetRootFlags resets the global and root command flags to their defaults.
func resetRootFlags() {
	configPath = config.DefaultPath
	auditLogPath = ""
	verbosity = "info"
	rootName = ""
	rootCountry = ""
	rootState = ""
	rootOrg = ""
	rootOU = ""
	rootEmail = ""
	rootNoPass = false
	clearChanged := func(f *pflag.Flag) { f.Changed = false }
	rootCmd.PersistentFlags().VisitAll(clearChanged)
	rootCmd.Flags().VisitAll(clearChanged)
}

// testContext holds test resources.
type testContext struct {
	t       *testing.T
	tempDir string
	fake    *testutil.FakeToolkit
}

// newTestContext creates a temp directory holding the scaffolded files and
// a configuration, and routes every external command to a fake toolkit.
func newTestContext(t *testing.T, extra ...string) *testContext {
	t.Helper()
	resetRootFlags()
	resetAuditFlags()

	tc := &testContext{t: t, tempDir: t.TempDir()}
	tc.fake = testutil.NewFakeToolkit(afero.NewOsFs())

	prevRunner := newRunner
	newRunner = func(*cobra.Command) runner.Runner { return tc.fake }
	t.Cleanup(func() { newRunner = prevRunner })

	if _, err := profiles.Scaffold(afero.NewOsFs(), tc.tempDir); err != nil {
		t.Fatalf("Scaffold() error = %v", err)
	}

	lines := []string{
		"ovpnkeys:",
		"  dir: " + tc.path("ca"),
		"  root_name: Test VPN CA",
		"  country: US",
		"  state: CA",
		"  organization: Test",
		"  organizational_unit: VPN",
		"  email: vpn@example.com",
		"  root_certification_days: 3650",
		"  certification_days: 825",
		"  openssl_config: " + tc.path("openssl.cnf"),
		"  template_dir: " + tc.tempDir,
		"  remote: vpn.example.com",
		"  port: 1194",
		"  proto: udp",
		"  server_network: 10.8.0.0 255.255.255.0",
	}
	for _, kv := range extra {
		lines = append(lines, "  "+kv)
	}
	tc.writeFile("ovpnkeys.yaml", strings.Join(lines, "\n")+"\n")
	return tc
}

// path returns a path within the temp directory.
func (tc *testContext) path(name ...string) string {
	return filepath.Join(append([]string{tc.tempDir}, name...)...)
}

// config returns the --config argument pair for the test configuration.
func (tc *testContext) config() []string {
	return []string{"--config", tc.path("ovpnkeys.yaml")}
}

// run executes ovpnkeys with the test configuration.
func (tc *testContext) run(input string, args ...string) (string, error) {
	return executeCommandWithInput(rootCmd, input, append(args, tc.config()...)...)
}

// writeFile writes content to a file in the temp directory.
func (tc *testContext) writeFile(name, content string) string {
	tc.t.Helper()
	path := tc.path(name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		tc.t.Fatalf("Failed to write file %s: %v", name, err)
	}
	return path
}

func (tc *testContext) readFile(name ...string) string {
	tc.t.Helper()
	data, err := os.ReadFile(tc.path(name...))
	if err != nil {
		tc.t.Fatalf("Failed to read %s: %v", filepath.Join(name...), err)
	}
	return string(data)
}

func (tc *testContext) exists(name ...string) bool {
	_, err := os.Stat(tc.path(name...))
	return err == nil
}

func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected output to contain %q, got:\n%s", substr, s)
	}
}

func assertNotContains(t *testing.T, s, substr string) {
	t.Helper()
	if strings.Contains(s, substr) {
		t.Errorf("expected output not to contain %q, got:\n%s", substr, s)
	}
}

