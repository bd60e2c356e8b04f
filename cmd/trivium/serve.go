package main

import (
	"github.com/aretw0/trivium/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only status API",
	Long: `Exposes /status, /output, /batches/{id}/artifacts, /events and, when metrics are
enabled, /metrics. The server never changes the workflow state.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, cfg, logger, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()
		return cli.Serve(sc, addr, stack.HTTPHandler(logger), logger, nil)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (default from config server.addr)")
}
