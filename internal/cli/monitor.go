package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/mission"
	"github.com/xela07ax/mindtussle/internal/monitor"
)

func newMonitorCmd(a *app) *cobra.Command {
	var (
		framesDir string
		framePath string
		loop      bool
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the capture-and-classify loop against a frame source",
		Long: `monitor feeds frames to the guardian every interval and reports drift to the relay.
Frames come from a directory of screenshots (--frames) or a single image (--file).
The mission heartbeat runs alongside so the shield keeps seeing a fresh mission.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := frameSource(framesDir, framePath, loop)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if _, ok := store.Mission(); !ok {
				return mission.ErrNoMission
			}

			heartbeat := store.HeartbeatTask(a.cfg.Monitor.Heartbeat).Start(ctx)
			defer heartbeat.Stop()

			l := monitor.NewLoop(source, a.relay, a.relay, store, monitor.Options{
				Interval:      a.cfg.Monitor.Interval,
				ErrorInterval: a.cfg.Monitor.ErrorInterval,
				Jitter:        a.cfg.Monitor.Jitter,
				OnUpdate:      func(s monitor.UIState) { a.printUI(s) },
			}, a.logger)

			a.logger.Info("monitor started",
				zap.Duration("interval", a.cfg.Monitor.Interval),
				zap.String("relay", a.cfg.Shield.RelayURL))
			l.Run(ctx)
			return nil
		},
	}
	cmd.Flags().StringVar(&framesDir, "frames", "", "directory of PNG/JPEG frames, read in name order")
	cmd.Flags().StringVar(&framePath, "file", "", "single image re-read on every tick")
	cmd.Flags().BoolVar(&loop, "loop", false, "restart the directory when frames run out")
	return cmd
}

func frameSource(dir, path string, loop bool) (monitor.FrameSource, error) {
	switch {
	case dir != "" && path != "":
		return nil, errors.New("use either --frames or --file")
	case dir != "":
		src, err := monitor.NewDirSource(dir, loop)
		if err != nil {
			return nil, err
		}
		return src, nil
	case path != "":
		return monitor.FileSource{Path: path}, nil
	default:
		return nil, errors.New("a frame source is required: --frames <dir> or --file <image>")
	}
}

func (a *app) printUI(s monitor.UIState) {
	switch {
	case !s.Live:
		return
	case s.Error != "":
		fmt.Fprintf(a.out, "[%d] ⚠️  %s\n", s.Checks, s.Error)
	case s.Feedback != nil:
		icon := "✅"
		if s.Feedback.Type == monitor.FeedbackHostile {
			icon = "🚨"
		}
		fmt.Fprintf(a.out, "[%d] %s %s score=%d %s\n", s.Checks, icon, s.Feedback.Verdict, s.Score, s.Feedback.Message)
		if len(s.DetectedSites) > 0 {
			fmt.Fprintf(a.out, "     detected: %s\n", strings.Join(s.DetectedSites, ", "))
		}
		if s.DriftAlert != nil {
			fmt.Fprintf(a.out, "     drift: %s (blocked: %s)\n", s.DriftAlert.Message, strings.Join(s.DriftAlert.BlockedSites, ", "))
		}
	}
}
