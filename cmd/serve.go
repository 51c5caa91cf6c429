package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/effluent-cli/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the classification API over HTTP",
	Long: `Serve the classification API over HTTP.

  GET  /api/health
  GET  /api/catalog/{mode}
  POST /api/analyze   {"mode": "Alkaline", "entries": [{"analyte": "...", "concentration": 1.2}]}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		addr := serveAddr
		if !cmd.Flags().Changed("addr") && cfg != nil && cfg.ServerAddr != "" {
			addr = cfg.ServerAddr
		}

		var runs server.RunRecorder
		store, err := openHistory()
		if err != nil {
			logger.Warn("history unavailable", zap.Error(err))
		} else if store != nil {
			defer store.Close()
			runs = store
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		h := server.NewHandler(cat, runs, logger)
		return server.ListenAndServe(ctx, addr, server.NewRouter(h, logger), logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}
