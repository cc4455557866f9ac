package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bank-reconciliation-engine/internal/matcher"
	"bank-reconciliation-engine/internal/reconciler"
	"bank-reconciliation-engine/internal/server"
	"bank-reconciliation-engine/internal/store"
)

var (
	serveDBPath string
	serveAddr   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the suggestion engine over HTTP",
	Long: `Serve exposes the suggestion engine as an HTTP API.

Endpoints:
  GET  /healthz                   liveness probe
  POST /v1/reconciliation/runs    execute a suggestion run

Examples:
  reconengine serve --db ledger.db
  reconengine serve --db ledger.db --addr :9090`,

	PreRunE: validateServeFlags,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "path to the SQLite database (required)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")

	serveCmd.MarkFlagRequired("db")

	viper.BindPFlag("serve-db", serveCmd.Flags().Lookup("db"))
	viper.BindPFlag("serve-addr", serveCmd.Flags().Lookup("addr"))
}

func validateServeFlags(cmd *cobra.Command, args []string) error {
	if serveDBPath == "" {
		return fmt.Errorf("db is required")
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	handler := NewCLIErrorHandler(log)

	db, err := store.Open(serveDBPath, log)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}
	defer db.Close()

	service, err := reconciler.NewService(db, matcher.DefaultConfig(), log)
	if err != nil {
		os.Exit(handler.HandleError(err))
	}

	return server.New(service, log).Run(serveAddr)
}
