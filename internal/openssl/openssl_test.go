package openssl

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovpnkeys/ovpnkeys/internal/runner"
)

type recorder struct {
	cmds []runner.Command
}

func (r *recorder) Run(_ context.Context, cmd runner.Command) error {
	r.cmds = append(r.cmds, cmd)
	return nil
}

func (r *recorder) last() string {
	return strings.Join(r.cmds[len(r.cmds)-1].Args, " ")
}

func newToolkit() (*Toolkit, *recorder) {
	rec := &recorder{}
	return &Toolkit{
		Runner: rec,
		Config: "./openssl.cnf",
		Env:    []string{"OVPNKEYS_CA=ca", "OVPNKEYS_CRL="},
	}, rec
}

func TestU_Toolkit_GenRequest(t *testing.T) {
	tk, rec := newToolkit()
	ctx := context.Background()

	require.NoError(t, tk.GenRequest(ctx, RequestOptions{
		KeyOut: "ca/private/bob.pem", Out: "ca/reqs/bob.csr", Subject: "/CN=bob",
	}))
	assert.Equal(t, "openssl req -new -newkey rsa -keyout ca/private/bob.pem -out ca/reqs/bob.csr -config ./openssl.cnf -subj /CN=bob", rec.last())

	require.NoError(t, tk.GenRequest(ctx, RequestOptions{
		KeyOut: "k", Out: "o", Subject: "/CN=x", NoPass: true,
	}))
	assert.True(t, strings.HasSuffix(rec.last(), " -nodes"))
	assert.Equal(t, tk.Env, rec.cmds[1].Env)
}

func TestU_Toolkit_Sign(t *testing.T) {
	tk, rec := newToolkit()

	require.NoError(t, tk.Sign(context.Background(), SignOptions{
		In: "r.csr", Out: "p.crt", Days: "825", Extensions: "my_vpn_client_exts_crl",
		Env: []string{"OVPNKEYS_CRL=URI:http://x"},
	}))
	assert.Equal(t, "openssl ca -batch -days 825 -config ./openssl.cnf -extensions my_vpn_client_exts_crl -out p.crt -infiles r.csr", rec.last())
	assert.Equal(t, []string{"OVPNKEYS_CA=ca", "OVPNKEYS_CRL=", "OVPNKEYS_CRL=URI:http://x"}, rec.cmds[0].Env)
	assert.Len(t, tk.Env, 2, "per-call env must not leak into the toolkit")
}

func TestU_Toolkit_OtherCommands(t *testing.T) {
	tk, rec := newToolkit()
	tk.Binary = "/usr/bin/openssl"
	tk.OpenVPN = "/usr/sbin/openvpn"
	ctx := context.Background()

	require.NoError(t, tk.SelfSign(ctx, SignOptions{In: "root.csr", Out: "root.crt", Days: "3650", Extensions: "my_v3_ca_exts", KeyFile: "root.pem"}))
	assert.Equal(t, "/usr/bin/openssl ca -batch -create_serial -out root.crt -days 3650 -keyfile root.pem -selfsign -extensions my_v3_ca_exts -config ./openssl.cnf -infiles root.csr", rec.last())

	require.NoError(t, tk.Revoke(ctx, "pub/bob.crt"))
	assert.Equal(t, "/usr/bin/openssl ca -revoke pub/bob.crt -config ./openssl.cnf", rec.last())

	require.NoError(t, tk.GenCRL(ctx, "crl/crl.pem"))
	assert.Equal(t, "/usr/bin/openssl ca -gencrl -config ./openssl.cnf -out crl/crl.pem", rec.last())

	require.NoError(t, tk.DHParam(ctx, "dh2048.pem", "2048"))
	assert.Equal(t, "/usr/bin/openssl dhparam -out dh2048.pem 2048", rec.last())

	require.NoError(t, tk.GenTLSAuthKey(ctx, "tls-auth.pem"))
	assert.Equal(t, "/usr/sbin/openvpn --genkey secret tls-auth.pem", rec.last())
}
