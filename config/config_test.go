package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigMinimal(t *testing.T) {
	require := require.New(t)

	cfg, err := Load([]byte(`
[Account]
  BDUSS = "abc"
`))
	require.NoError(err)
	require.Equal("abc", cfg.Account.BDUSS)
	require.Equal(defaultLogLevel, cfg.Logging.Level)
	require.Equal(defaultAppBaseURL, cfg.Network.AppBaseURL)
	require.Equal(defaultWebsocketURL, cfg.Network.WebsocketURL)
	require.Equal(8*time.Second, cfg.Network.DialTimeoutDuration())
	require.Equal(5*time.Second, cfg.Network.ReadTimeoutDuration())
	require.Equal("", cfg.Cache.Path)
	require.Equal("", cfg.Metrics.Address)
	require.Equal("none", cfg.UpstreamProxyConfig().Type)

	// the default logging block is not shared between configs
	cfg.Logging.Level = "DEBUG"
	require.Equal(defaultLogLevel, defaultLogging.Level)
}

func TestConfigFile(t *testing.T) {
	require := require.New(t)

	cfg, err := LoadFile("testdata/tieba.toml")
	require.NoError(err)
	require.Equal("DEBUG", cfg.Logging.Level)
	require.Equal("stoken-from-file", cfg.Account.STOKEN)
	require.Equal("ws://127.0.0.1:8000", cfg.Network.WebsocketURL)
	require.Equal(10*time.Second, cfg.Network.ReadTimeoutDuration())
	require.Equal("socks5", cfg.UpstreamProxyConfig().Type)
	require.Equal("tcp", cfg.UpstreamProxyConfig().Network)
	require.Equal("/var/lib/tieba/fid.db", cfg.Cache.Path)
	require.Equal("127.0.0.1:9100", cfg.Metrics.Address)

	_, err = LoadFile("testdata/missing.toml")
	require.Error(err)
}

func TestConfigInvalid(t *testing.T) {
	for _, s := range []string{
		``,
		`[Account]`,
		"[Account]\nBDUSS = \"x\"\n[Logging]\nLevel = \"LOUD\"",
		"[Account]\nBDUSS = \"x\"\nUnknown = 1",
		"[Account]\nBDUSS = \"x\"\n[Network]\nAppBaseURL = \"not a url\"",
		"[Account]\nBDUSS = \"x\"\n[Network]\nReadTimeout = -1",
		"[Account]\nBDUSS = \"x\"\n[UpstreamProxy]\nType = \"http\"",
		"[Account\n",
	} {
		_, err := Load([]byte(s))
		require.Error(t, err, s)
	}
}
