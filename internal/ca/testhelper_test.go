package ca

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"

	"github.com/ovpnkeys/ovpnkeys/internal/audit"
	"github.com/ovpnkeys/ovpnkeys/internal/config"
	"github.com/ovpnkeys/ovpnkeys/internal/crl"
	"github.com/ovpnkeys/ovpnkeys/internal/openssl"
	"github.com/ovpnkeys/ovpnkeys/internal/testutil"
)

const (
	testRoot        = "/ca"
	testTemplateDir = "/templates"
	testOpenSSLConf = "/etc/ovpnkeys/openssl.cnf"
)

const clientTemplate = `client
remote {{remote}} 1194
<ca>
{{cacert}}</ca>
<cert>
{{cert}}</cert>
<key>
{{key}}</key>
<tls-auth>
{{ta}}</tls-auth>
`

const serverTemplate = `port 1194
<ca>
{{cacert}}</ca>
<cert>
{{cert}}</cert>
<key>
{{key}}</key>
<dh>
{{dh}}</dh>
<tls-auth>
{{ta}}</tls-auth>
`

// testContext bundles a CA wired to an in-memory filesystem and a fake
// openssl.
type testContext struct {
	ca      *CA
	fs      afero.Fs
	fake    *testutil.FakeToolkit
	out     *bytes.Buffer
	asked   []string
	answer  bool
	cfgVals map[string]string
}

func baseConfig() map[string]string {
	return map[string]string{
		"dir":                     testRoot,
		"root_name":               "Example VPN CA",
		"country":                 "US",
		"state":                   "CA",
		"organization":            "Example",
		"organizational_unit":     "VPN",
		"email":                   "vpn@example.com",
		"root_certification_days": "3650",
		"certification_days":      "825",
		"template_dir":            testTemplateDir,
		"remote":                  "vpn.example.com",
	}
}

type testOption func(*testContext, *Options)

func withConfig(key, value string) testOption {
	return func(tc *testContext, _ *Options) {
		tc.cfgVals[key] = value
	}
}

func withoutConfig(key string) testOption {
	return func(tc *testContext, _ *Options) {
		delete(tc.cfgVals, key)
	}
}

func withPublisher(endpoint string) testOption {
	return func(_ *testContext, opts *Options) {
		opts.Publisher = crl.NewPublisher(endpoint, 0)
	}
}

func withAudit(w audit.Writer) testOption {
	return func(_ *testContext, opts *Options) {
		opts.Audit = w
	}
}

func newTestContext(t *testing.T, options ...testOption) *testContext {
	t.Helper()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, testTemplateDir+"/client.ovpn.template", []byte(clientTemplate), 0644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := afero.WriteFile(fs, testTemplateDir+"/server.ovpn.template", []byte(serverTemplate), 0644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	tc := &testContext{
		fs:      fs,
		fake:    testutil.NewFakeToolkit(fs),
		out:     &bytes.Buffer{},
		cfgVals: baseConfig(),
	}
	opts := Options{}
	for _, o := range options {
		o(tc, &opts)
	}

	cfg := config.FromMap(tc.cfgVals)
	opts.Config = cfg
	opts.Store = NewStore(fs, cfg.Dir())
	opts.Toolkit = &openssl.Toolkit{
		Runner: tc.fake,
		Config: testOpenSSLConf,
		Env:    cfg.Env(),
	}
	opts.Out = tc.out
	opts.Prompt = func(q string) (bool, error) {
		tc.asked = append(tc.asked, q)
		return tc.answer, nil
	}
	tc.ca = New(opts)
	return tc
}

func (tc *testContext) read(t *testing.T, path string) string {
	t.Helper()
	data, err := afero.ReadFile(tc.fs, path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func (tc *testContext) exists(t *testing.T, path string) bool {
	t.Helper()
	ok, err := afero.Exists(tc.fs, path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return ok
}
