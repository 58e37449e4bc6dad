package main

import (
	"github.com/spf13/cobra"

	"github.com/letieu/strategia/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Long: `Starts the HTTP API on server.addr (or --addr). When server.api_key is set,
every /api request must carry it in the X-API-Key header.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	var opts []server.Option
	if cfg.Server.APIKey != "" {
		opts = append(opts, server.WithAPIKey(cfg.Server.APIKey))
	}
	return server.New(a.analyzer, a.library, a.licenses, logger, opts...).Run(ctx, addr)
}
