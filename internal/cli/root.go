// Package cli implements rtpctl, the operator tool for teleport history and
// search previews.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/udisondev/rtp/internal/config"
)

// Execute runs rtpctl and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

type options struct {
	serverConfig string
	pluginConfig string
	debug        bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "rtpctl",
		Short:        "Inspect teleport history and preview random teleport locations",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.serverConfig, "config", "c", envOr("RTP_SERVER_CONFIG", "config/rtpserver.yaml"), "server config file")
	cmd.PersistentFlags().StringVar(&opts.pluginConfig, "plugin-config", os.Getenv("RTP_PLUGIN_CONFIG"), "plugin config file (default: plugin_config from the server config)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(historyCmd(opts))
	cmd.AddCommand(locateCmd(opts))
	return cmd
}

func (o *options) loadServer() (config.Server, error) {
	return config.LoadServer(o.serverConfig)
}

func (o *options) loadPlugin(srv config.Server) (config.Plugin, error) {
	path := o.pluginConfig
	if path == "" {
		path = srv.PluginConfig
	}
	return config.LoadPlugin(path)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
