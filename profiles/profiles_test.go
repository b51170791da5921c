package profiles

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovpnkeys/ovpnkeys/internal/config"
	"github.com/ovpnkeys/ovpnkeys/internal/ovpn"
)

func TestU_Scaffold(t *testing.T) {
	dst := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(dst, "/work/openssl.cnf", []byte("custom"), 0644))

	results, err := Scaffold(dst, "/work")
	require.NoError(t, err)
	require.Len(t, results, len(Files))

	for _, r := range results {
		if strings.HasSuffix(r.Path, "openssl.cnf") {
			assert.False(t, r.Written)
			continue
		}
		assert.True(t, r.Written, r.Path)
	}

	data, err := afero.ReadFile(dst, "/work/openssl.cnf")
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data), "existing files must not be overwritten")
}

func TestU_ExampleConfig_Parses(t *testing.T) {
	data, err := fs.ReadFile(FS, "ovpnkeys.yaml.example")
	require.NoError(t, err)

	cfg, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "./ca", cfg.Dir())

	for _, key := range []string{
		"root_name", "country", "state", "organization", "organizational_unit",
		"email", "root_certification_days", "certification_days",
	} {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
	noPass, err := cfg.Bool("no_ca_pass", true)
	require.NoError(t, err)
	assert.False(t, noPass)
}

// Every placeholder in the shipped templates resolves from either an
// artifact or the example configuration.
func TestU_Templates_Resolve(t *testing.T) {
	data, err := fs.ReadFile(FS, "ovpnkeys.yaml.example")
	require.NoError(t, err)
	cfg, err := config.Parse(data)
	require.NoError(t, err)

	artifacts := map[string]bool{
		ovpn.KeyCACert: true, ovpn.KeyCert: true, ovpn.KeyKey: true, ovpn.KeyTLS: true, ovpn.KeyDH: true,
	}
	resolver := ovpn.ResolverFunc(func(key string) (string, error) {
		if artifacts[key] {
			return "ARTIFACT\n", nil
		}
		return cfg.Get(key)
	})

	for _, name := range []string{"server.ovpn.template", "client.ovpn.template"} {
		tmpl, err := fs.ReadFile(FS, name)
		require.NoError(t, err)
		out, err := ovpn.Render(string(tmpl), resolver)
		require.NoError(t, err, name)
		assert.NotContains(t, out, "{{", name)
	}
}

func TestU_OpenSSLConfig_Sections(t *testing.T) {
	data, err := fs.ReadFile(FS, "openssl.cnf")
	require.NoError(t, err)
	text := string(data)

	for _, section := range []string{
		"my_v3_ca_exts",
		"my_vpn_server_exts", "my_vpn_server_exts_crl",
		"my_vpn_client_exts", "my_vpn_client_exts_crl",
	} {
		assert.Contains(t, text, "[ "+section+" ]")
	}
	assert.Contains(t, text, "$ENV::"+config.EnvCA)
	assert.Contains(t, text, "$ENV::"+config.EnvCRL)
}
