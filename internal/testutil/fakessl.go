// Package testutil provides test doubles shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/ovpnkeys/ovpnkeys/internal/runner"
)

// FakeToolkit is a runner.Runner that imitates openssl and openvpn by
// writing placeholder artifacts into an afero filesystem.
type FakeToolkit struct {
	Fs afero.Fs

	// FailOn makes any command whose joined arguments contain the key
	// exit with the mapped status.
	FailOn map[string]int

	mu       sync.Mutex
	commands []runner.Command
	serial   int
}

var _ runner.Runner = (*FakeToolkit)(nil)

// NewFakeToolkit returns a fake writing into fs.
func NewFakeToolkit(fs afero.Fs) *FakeToolkit {
	return &FakeToolkit{Fs: fs, serial: 0x1000}
}

// Commands returns the recorded invocations.
func (f *FakeToolkit) Commands() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Command(nil), f.commands...)
}

// Joined returns the recorded invocations as space separated strings.
func (f *FakeToolkit) Joined() []string {
	var out []string
	for _, c := range f.Commands() {
		out = append(out, strings.Join(c.Args, " "))
	}
	return out
}

// Run implements runner.Runner.
func (f *FakeToolkit) Run(_ context.Context, cmd runner.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commands = append(f.commands, cmd)
	joined := strings.Join(cmd.Args, " ")
	for key, code := range f.FailOn {
		if strings.Contains(joined, key) {
			return &runner.CommandError{Args: cmd.Args, ExitCode: code}
		}
	}

	args := cmd.Args[1:]
	if len(args) == 0 {
		return nil
	}

	switch {
	case args[0] == "req":
		f.serial++
		if err := f.write(flag(args, "-keyout"), fmt.Sprintf("KEY %x\n", f.serial)); err != nil {
			return err
		}
		return f.write(flag(args, "-out"), fmt.Sprintf("CSR %s\n", flag(args, "-subj")))
	case args[0] == "ca" && has(args, "-gencrl"):
		f.serial++
		return f.write(flag(args, "-out"), fmt.Sprintf("CRL %x\n", f.serial))
	case args[0] == "ca" && has(args, "-revoke"):
		return nil
	case args[0] == "ca":
		f.serial++
		return f.write(flag(args, "-out"), fmt.Sprintf("CERT %x %s\n", f.serial, flag(args, "-extensions")))
	case args[0] == "dhparam":
		return f.write(flag(args, "-out"), "DH PARAMETERS\n")
	case args[0] == "--genkey":
		return f.write(args[len(args)-1], "TLS AUTH SECRET\n")
	}
	return nil
}

func (f *FakeToolkit) write(path, content string) error {
	if path == "" {
		return nil
	}
	return afero.WriteFile(f.Fs, path, []byte(content), 0600)
}

func flag(args []string, name string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == name {
			return args[i+1]
		}
	}
	return ""
}

func has(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}
