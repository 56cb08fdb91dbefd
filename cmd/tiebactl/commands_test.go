package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	tieba "github.com/geary0124/Tieba-Manager"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSign(t *testing.T) {
	out, err := run(t, "sign", "BDUSS=abc", "_client_version=12.57.4.2")
	require.NoError(t, err)
	want := tieba.Sign(tieba.Form{
		{Key: "BDUSS", Value: "abc"},
		{Key: "_client_version", Value: "12.57.4.2"},
	}).Encode()
	require.Equal(t, want, strings.TrimSpace(out))

	_, err = run(t, "sign", "novalue")
	require.Error(t, err)
}

func TestFrameRoundTrip(t *testing.T) {
	out, err := run(t, "frame", "--cmd", "205001", "--id", "7", "hello")
	require.NoError(t, err)
	hexFrame := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(hexFrame, "08"))

	out, err = run(t, "frame", "-d", hexFrame)
	require.NoError(t, err)
	require.Equal(t, "cmd=205001 id=7 payload=\"hello\"\n", out)

	out, err = run(t, "frame", "--gzip", "hello")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(strings.TrimSpace(out), "88"))
}

func TestNetworkCommandsNeedAccount(t *testing.T) {
	_, err := run(t, "login")
	require.Error(t, err)
	require.Contains(t, err.Error(), "BDUSS")
}

func TestLoadConfigOverrides(t *testing.T) {
	opts := &options{bduss: "b", stoken: "s", logLevel: "debug", metricsAddr: "127.0.0.1:0"}
	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	require.Equal(t, "b", cfg.Account.BDUSS)
	require.Equal(t, "s", cfg.Account.STOKEN)
	require.Equal(t, "DEBUG", cfg.Logging.Level)
	require.Equal(t, "127.0.0.1:0", cfg.Metrics.Address)
	require.Equal(t, tieba.DefaultWebsocketURL, cfg.Network.WebsocketURL)
}
