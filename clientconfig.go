package tieba

import (
	"github.com/geary0124/Tieba-Manager/config"
	"github.com/geary0124/Tieba-Manager/fidcache"
	"github.com/geary0124/Tieba-Manager/log"
)

var _ FidCache = (*fidcache.Cache)(nil)

// NewClientFromConfig returns a Client set up from a validated
// configuration. If the configuration names a cache file the Client opens
// it and closes it with the Client.
func NewClientFromConfig(cfg *config.Config, logBackend *log.Backend, opts ...Option) (*Client, error) {
	dial, err := cfg.UpstreamProxyConfig().ToDialContext(cfg.Network.DialTimeoutDuration())
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithAccount(cfg.Account.BDUSS, cfg.Account.STOKEN),
		WithLogBackend(logBackend),
		WithAppBaseURL(cfg.Network.AppBaseURL),
		WithWebBaseURL(cfg.Network.WebBaseURL),
		WithWebsocketURL(cfg.Network.WebsocketURL),
	}
	if dial != nil {
		base = append(base, WithDialer(DialContextFunc(dial)))
	}

	var fc *fidcache.Cache
	if cfg.Cache.Path != "" {
		if fc, err = fidcache.New(cfg.Cache.Path); err != nil {
			return nil, err
		}
		base = append(base, WithFidCache(fc))
	}

	c, err := NewClient(append(base, opts...)...)
	if err != nil {
		if fc != nil {
			fc.Close()
		}
		return nil, err
	}
	c.ReadTimeout = cfg.Network.ReadTimeoutDuration()
	c.dialer.HandshakeTimeout = cfg.Network.DialTimeoutDuration()
	if fc != nil {
		if c.fids == FidCache(fc) {
			c.ownFids = true
		} else {
			fc.Close()
		}
	}
	return c, nil
}
