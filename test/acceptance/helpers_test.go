//go:build acceptance

// Package acceptance contains black-box CLI acceptance tests (TestA_*).
// They drive the real openssl and openvpn binaries.
// Run with: go test -tags=acceptance ./test/acceptance/...
package acceptance

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// ovpnkeysBinary is the path to the ovpnkeys binary.
// Set via OVPNKEYS_BINARY env var or default to ../../bin/ovpnkeys.
var ovpnkeysBinary string

func init() {
	if bin := os.Getenv("OVPNKEYS_BINARY"); bin != "" {
		ovpnkeysBinary = bin
	} else {
		ovpnkeysBinary = "../../bin/ovpnkeys"
	}
}

// requireTools skips the test when a required binary is unavailable.
func requireTools(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(ovpnkeysBinary); err != nil {
		t.Skipf("ovpnkeys binary not found at %s", ovpnkeysBinary)
	}
	for _, tool := range []string{"openssl", "openvpn"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not installed", tool)
		}
	}
}

// workspace is a directory holding the scaffolded files and a config.
type workspace struct {
	t   *testing.T
	dir string
}

// newWorkspace scaffolds a directory and writes ovpnkeys.yaml with the
// given extra settings.
func newWorkspace(t *testing.T, extra ...string) *workspace {
	t.Helper()
	requireTools(t)

	abs, err := filepath.Abs(ovpnkeysBinary)
	if err != nil {
		t.Fatal(err)
	}
	ovpnkeysBinary = abs

	ws := &workspace{t: t, dir: t.TempDir()}
	ws.run("scaffold", ws.dir)

	lines := []string{
		"ovpnkeys:",
		"  dir: " + ws.path("ca"),
		"  root_name: Acceptance VPN CA",
		"  country: US",
		"  state: CA",
		"  organization: Acceptance",
		"  organizational_unit: VPN",
		"  email: vpn@example.com",
		"  root_certification_days: 30",
		"  certification_days: 10",
		"  openssl_config: " + ws.path("openssl.cnf"),
		"  template_dir: " + ws.dir,
		"  remote: vpn.example.com",
		"  port: 1194",
		"  proto: udp",
		"  server_network: 10.8.0.0 255.255.255.0",
	}
	lines = append(lines, extra...)
	if err := os.WriteFile(ws.path("ovpnkeys.yaml"), []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	return ws
}

func (ws *workspace) path(parts ...string) string {
	return filepath.Join(append([]string{ws.dir}, parts...)...)
}

func (ws *workspace) command(stdin string, args ...string) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer) {
	cmd := exec.Command(ovpnkeysBinary, args...)
	cmd.Dir = ws.dir
	cmd.Env = append(os.Environ(), "OVPNKEYS_CONFIG="+ws.path("ovpnkeys.yaml"))
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	return cmd, &stdout, &stderr
}

// run executes ovpnkeys and returns stdout, failing on a non-zero exit.
func (ws *workspace) run(args ...string) string {
	return ws.runWithInput("", args...)
}

func (ws *workspace) runWithInput(stdin string, args ...string) string {
	ws.t.Helper()
	cmd, stdout, stderr := ws.command(stdin, args...)
	if err := cmd.Run(); err != nil {
		ws.t.Fatalf("ovpnkeys %s failed: %v\nstderr: %s\nstdout: %s",
			strings.Join(args, " "), err, stderr.String(), stdout.String())
	}
	return stdout.String()
}

// runExpectError executes ovpnkeys, expects exit status 1 and returns
// stderr.
func (ws *workspace) runExpectError(args ...string) string {
	ws.t.Helper()
	cmd, stdout, stderr := ws.command("", args...)
	err := cmd.Run()
	exitErr, ok := err.(*exec.ExitError)
	if !ok || exitErr.ExitCode() != 1 {
		ws.t.Fatalf("ovpnkeys %s: err = %v, want exit status 1\nstdout: %s",
			strings.Join(args, " "), err, stdout.String())
	}
	return stderr.String()
}

// pemBlock returns the first PEM block of the given type in data.
func pemBlock(t *testing.T, data []byte, typ string) []byte {
	t.Helper()
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			t.Fatalf("no %s block found", typ)
		}
		if block.Type == typ {
			return block.Bytes
		}
	}
}

func readCert(t *testing.T, path string) *x509.Certificate {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(pemBlock(t, data, "CERTIFICATE"))
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return cert
}

func readCRL(t *testing.T, path string) *x509.RevocationList {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	crl, err := x509.ParseRevocationList(pemBlock(t, data, "X509 CRL"))
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return crl
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
	}
}

func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected %s not to exist", path)
	}
}

func assertOutputContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Errorf("expected output to contain %q, got:\n%s", substr, output)
	}
}
