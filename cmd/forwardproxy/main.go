// Command forwardproxy is a runnable showcase host for the library: it
// wires pkg/acceptor, pkg/pipeline, pkg/upstream, and pkg/extensions
// together behind a small cobra-based CLI, the way the teacher ships
// standalone cmd/*/main.go programs rather than an opinionated server.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/proxycore/httprelay/pkg/acceptor"
	"github.com/proxycore/httprelay/pkg/config"
	"github.com/proxycore/httprelay/pkg/extensions/accesslog"
	"github.com/proxycore/httprelay/pkg/extensions/rewrite"
	"github.com/proxycore/httprelay/pkg/logging"
	"github.com/proxycore/httprelay/pkg/pipeline"
	"github.com/proxycore/httprelay/pkg/upstream"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	acceptorCfg := config.DefaultAcceptorConfig()
	pipelineCfg := config.DefaultPipelineConfig()
	var logLevel string
	var uppercaseBodies bool

	cmd := &cobra.Command{
		Use:   "forwardproxy",
		Short: "A minimal HTTP/1.x forward proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), acceptorCfg, pipelineCfg, logLevel, uppercaseBodies)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&acceptorCfg.ListenAddr, "listen", acceptorCfg.ListenAddr, "address to accept client connections on")
	flags.DurationVar(&acceptorCfg.SweepInterval, "sweep-interval", acceptorCfg.SweepInterval, "how often the live-connection registry is swept")
	flags.StringVar(&pipelineCfg.RelayURL, "relay", pipelineCfg.RelayURL, "optional upstream relay proxy URL (http://, https://, or socks5://)")
	flags.DurationVar(&pipelineCfg.DialTimeout, "dial-timeout", pipelineCfg.DialTimeout, "timeout for DNS + TCP connect to an upstream")
	flags.Int64Var(&pipelineCfg.BodyMemLimit, "body-mem-limit", pipelineCfg.BodyMemLimit, "in-memory byte limit before a materialized body spills to disk")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVar(&uppercaseBodies, "uppercase-bodies", false, "demo extension: uppercase decoded gzip response bodies")

	return cmd
}

func run(ctx context.Context, acceptorCfg config.AcceptorConfig, pipelineCfg config.PipelineConfig, logLevel string, uppercaseBodies bool) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	log := logging.NewDefault(os.Stderr, level)

	var relay *upstream.Relay
	if pipelineCfg.RelayURL != "" {
		relay, err = upstream.ParseRelayURL(pipelineCfg.RelayURL)
		if err != nil {
			return fmt.Errorf("invalid --relay: %w", err)
		}
	}

	var hooks pipeline.Hooks = pipeline.DefaultHooks{}
	if uppercaseBodies {
		rw := rewrite.New(nil)
		rw.MemLimit = pipelineCfg.BodyMemLimit
		hooks = rw
	}
	hooks = accesslog.Wrap(hooks)

	ln, err := net.Listen("tcp", acceptorCfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", acceptorCfg.ListenAddr, err)
	}

	factory := acceptor.NewPipelineFactory(relay, hooks, log, pipelineCfg.DialTimeout)
	listener := acceptor.New(ln, factory, log, acceptorCfg.SweepInterval)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.WithField("addr", ln.Addr().String()).Info("forwardproxy listening")
	return listener.Serve(ctx)
}
