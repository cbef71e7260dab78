// Command btcrelay boots the relay daemon: it wires config, logging, the
// Store, Vault-backed signer, and the HTTP control surface together, the
// way cmd/arcsign/main.go dispatches on RELAY_MODE's predecessor
// ARCSIGN_MODE before handing off to a concrete handler. Mode detection,
// fee/chain-client wiring, and graceful shutdown live here rather than in
// any internal package since spec §1 scopes "CLI/process bootstrapping"
// out of the core.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/yourusername/btcrelay/internal/btcsigner"
	"github.com/yourusername/btcrelay/internal/config"
	"github.com/yourusername/btcrelay/internal/controlsurface"
	"github.com/yourusername/btcrelay/internal/logging"
	"github.com/yourusername/btcrelay/internal/store"
)

const Version = "0.1.0"

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "version" || os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("btcrelay v%s\n", Version)
		return
	}
	if len(os.Args) > 1 && (os.Args[1] == "help" || os.Args[1] == "--help" || os.Args[1] == "-h") {
		printUsage()
		return
	}

	mode := logging.DetectMode()
	logger := logging.New(mode)
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("starting btcrelay",
		zap.String("version", Version),
		zap.String("mode", string(mode)),
		zap.String("network", string(cfg.Network)),
		zap.String("db_path", cfg.DBPath),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}

	signer := btcsigner.NewBTCDSigner()
	app := controlsurface.NewApp(cfg, st, signer, logger)
	defer app.Close()

	if pw, ok := config.MasterPasswordFromEnv(); ok {
		if err := app.Authenticate(pw); err != nil {
			logger.Fatal("RELAY_MASTER_PASSWORD does not match the stored verifier", zap.Error(err))
		}
	} else if mode == logging.ModeInteractive && term.IsTerminal(int(syscall.Stdin)) {
		pw, err := promptMasterPassword()
		if err != nil {
			logger.Fatal("failed to read master password", zap.Error(err))
		}
		if err := app.Authenticate(pw); err != nil {
			logger.Fatal("incorrect master password", zap.Error(err))
		}
	} else {
		logger.Warn("no master password established; the background engine cannot decrypt " +
			"signing keys until one is set via POST /api/network")
	}

	settings, err := st.GetSettings()
	if err != nil {
		logger.Fatal("failed to load settings", zap.Error(err))
	}
	if !settings.ActiveNetwork.IsValid() {
		settings.ActiveNetwork = cfg.Network
		if err := st.SetSettings(settings); err != nil {
			logger.Fatal("failed to seed initial settings", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: controlsurface.NewHandler(app),
	}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("control surface listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serveErrCh:
		if err != nil {
			logger.Error("control surface stopped unexpectedly", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("control surface shutdown did not complete cleanly", zap.Error(err))
	}
}

// promptMasterPassword reads the master password from the controlling
// terminal without echoing it, grounded on the teacher's interactive
// wallet-password prompt (term.ReadPassword over the raw stdin fd).
func promptMasterPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Master password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func printUsage() {
	fmt.Println("btcrelay - Bitcoin fund-relay orchestrator")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  btcrelay            Run the relay daemon and HTTP control surface")
	fmt.Println("  btcrelay version    Show version information")
	fmt.Println("  btcrelay help       Show this help message")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  RELAY_DB_PATH, RELAY_NETWORK, RELAY_POLL_INTERVAL, RELAY_HTTP_ADDR,")
	fmt.Println("  RELAY_CHAIN_CLIENT_URL, RELAY_FEE_ORACLE_URL, RELAY_MASTER_PASSWORD,")
	fmt.Println("  RELAY_MODE (interactive|daemon)")
}
