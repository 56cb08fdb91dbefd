package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	tieba "github.com/geary0124/Tieba-Manager"
	"github.com/geary0124/Tieba-Manager/config"
	"github.com/geary0124/Tieba-Manager/log"
)

type options struct {
	configFile  string
	bduss       string
	stoken      string
	logLevel    string
	metricsAddr string
	timeout     time.Duration
}

// session is what the network commands run against.
type session struct {
	client  *tieba.Client
	logBe   *log.Backend
	metrics *http.Server
}

func (s *session) Close() {
	s.client.Close()
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.metrics.Shutdown(ctx)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "tiebactl",
		Short:         "Forum client for the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "f", "", "TOML config file")
	pf.StringVar(&opts.bduss, "bduss", "", "BDUSS of the account (overrides the config file)")
	pf.StringVar(&opts.stoken, "stoken", "", "STOKEN of the account (overrides the config file)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (overrides the config file)")
	pf.StringVar(&opts.metricsAddr, "metrics", "", "serve prometheus metrics on this address")
	pf.DurationVar(&opts.timeout, "timeout", time.Second*30, "overall timeout of the command")

	root.AddCommand(
		signCmd(),
		frameCmd(),
		loginCmd(opts),
		fidCmd(opts),
		newMsgCmd(opts),
		repliesCmd(opts),
		sendCmd(opts),
	)
	return root
}

// loadConfig reads the config file, if any, and applies the flag overrides.
func (opts *options) loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if opts.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(opts.configFile); err != nil {
			return nil, err
		}
	}
	if cfg.Account == nil {
		cfg.Account = &config.Account{}
	}
	if opts.bduss != "" {
		cfg.Account.BDUSS = opts.bduss
	}
	if opts.stoken != "" {
		cfg.Account.STOKEN = opts.stoken
	}
	if cfg.Logging == nil {
		cfg.Logging = &config.Logging{Level: "WARNING"}
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.metricsAddr != "" {
		cfg.Metrics = &config.Metrics{Address: opts.metricsAddr}
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (opts *options) newSession() (*session, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	logBe, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}
	s := &session{logBe: logBe}
	if cfg.Metrics.Address != "" {
		if s.metrics, err = startMetrics(cfg.Metrics.Address, logBe); err != nil {
			return nil, err
		}
	}
	if s.client, err = tieba.NewClientFromConfig(cfg, logBe); err != nil {
		if s.metrics != nil {
			s.metrics.Close()
		}
		return nil, err
	}
	return s, nil
}

func startMetrics(addr string, logBe *log.Backend) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	if err := tieba.RegisterMetrics(reg); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	errLog := logBe.GetGoLogger("tiebactl/metrics", "WARNING")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{ErrorLog: errLog}))
	srv := &http.Server{
		Handler:           mux,
		ErrorLog:          errLog,
		ReadHeaderTimeout: tieba.DefaultReadTimeout,
	}
	go srv.Serve(ln)
	logBe.GetLogger("tiebactl").Noticef("serving metrics on http://%s/metrics", ln.Addr())
	return srv, nil
}

// runWithSession wraps a command body that needs a Client.
func runWithSession(opts *options, fn func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := opts.newSession()
		if err != nil {
			return err
		}
		defer s.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		defer cancel()
		return fn(ctx, cmd, s, args)
	}
}
