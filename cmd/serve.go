package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"instant-swap/config"
	"instant-swap/pkg/api"
	"instant-swap/pkg/wallet"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the swap widget as an HTTP service",
	Long: `Serve the swap widget state machine over HTTP. Every widget gesture is an
endpoint and GET /api/v1/state returns the full snapshot, so a UI can drive
the whole flow remotely.

Examples:
  instant-swap serve
  INSTANT_SWAP_LISTEN_ADDR=:9000 instant-swap serve`,
	Run: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if cfg.PrivateKey == "" {
		printError(fmt.Errorf("private key not configured. Set INSTANT_SWAP_PRIVATE_KEY to serve"))
		os.Exit(1)
	}

	logger := buildLogger(verbose)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := wallet.NewEthProvider(cfg.RPCURL, cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer provider.Close()

	widget, err := buildWidget(ctx, cfg, provider, logger)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	go widget.RunHeartbeat(ctx)

	handler := api.NewHandler(widget, logger)
	router := api.SetupRouter(handler, logger)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
	widget.Wait()
}
