// Package cli — команды focusctl: клиентская сторона MindTussle.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/infra"
	"github.com/xela07ax/mindtussle/internal/mission"
	"github.com/xela07ax/mindtussle/internal/relayclient"
)

// app — общие зависимости команд, собираются в PersistentPreRunE.
type app struct {
	cfg    *infra.Config
	logger *zap.Logger
	relay  *relayclient.Client
	out    io.Writer

	relayURL string
	dataDir  string
	verbose  bool
}

func NewRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:           "focusctl",
		Short:         "MindTussle focus guardian client",
		Long:          `focusctl owns the local mission, keeps the relay in sync and runs the screen capture-and-classify loop.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.out)

	root.PersistentFlags().StringVar(&a.relayURL, "relay", "", "relay base URL (default from shield.relay_url)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory for the persisted client state (default from monitor.data_dir)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newMissionCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newSettingsCmd(a),
		newStatusCmd(a),
		newMonitorCmd(a),
		newGuardianCmd(a),
		newTabCmd(a),
	)
	return root
}

// Execute — точка входа cmd/focusctl.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func (a *app) init() error {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logger.Level = "debug"
	}
	if a.relayURL != "" {
		cfg.Shield.RelayURL = a.relayURL
	}
	if a.dataDir != "" {
		cfg.Monitor.DataDir = a.dataDir
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	// Guardian отвечает долго: таймаут клиента с запасом над таймаутом модели
	a.relay = relayclient.New(cfg.Shield.RelayURL, cfg.Guardian.Timeout*2)
	return nil
}

func (a *app) openStore(ctx context.Context) (*mission.Store, error) {
	return mission.Open(ctx, mission.NewFileStorage(a.cfg.Monitor.DataDir), a.relay, nil, a.logger)
}

// signalContext отменяется по Ctrl+C / SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
