package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/mission"
)

func newMissionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mission",
		Short: "Start, end and inspect the local mission",
	}
	cmd.AddCommand(newMissionStartCmd(a), newMissionEndCmd(a), newMissionShowCmd(a), newMissionSyncCmd(a))
	return cmd
}

func newMissionStartCmd(a *app) *cobra.Command {
	var (
		mode  string
		allow []string
	)
	cmd := &cobra.Command{
		Use:   "start <objective>",
		Short: "Start a mission and push it to the relay",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			m, err := store.StartMission(cmd.Context(), strings.Join(args, " "), mode, allow)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "🎯 Mission started: %s (%s)\n", m.Objective, m.TrackingType)
			if len(m.AllowedTools) > 0 {
				fmt.Fprintf(a.out, "   Allowed: %s\n", strings.Join(m.AllowedTools, ", "))
			}
			fmt.Fprintln(a.out, "   Run `focusctl mission sync` or `focusctl monitor` to keep the shield updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeStrict), "tracking mode: STRICT or BALANCED")
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "allowed sites, comma separated")
	return cmd
}

func newMissionEndCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the mission and tell the relay it is no longer active",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.EndMission(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Mission ended.")
			return nil
		},
	}
}

func newMissionShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the persisted client state",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, _, err := mission.NewFileStorage(a.cfg.Monitor.DataDir).Load()
			if err != nil {
				return err
			}
			// Ключ API в вывод не попадает
			if data.Settings.APIKey != "" {
				data.Settings.APIKey = maskKey(data.Settings.APIKey)
			}
			return a.printJSON(data)
		},
	}
}

func newMissionSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Re-push the active mission every heartbeat until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if _, ok := store.Mission(); !ok {
				return mission.ErrNoMission
			}

			a.logger.Info("mission heartbeat running", zap.Duration("every", a.cfg.Monitor.Heartbeat))
			store.HeartbeatTask(a.cfg.Monitor.Heartbeat).Run(ctx)
			return nil
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	var (
		name  string
		prefs mission.LoginPreferences
	)
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in locally, optionally starting a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			user, err := store.Login(cmd.Context(), args[0], name, &prefs)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s!\n", user.Name)
			if m, ok := store.Mission(); ok && prefs.Objective != "" {
				fmt.Fprintf(a.out, "🎯 Mission started: %s\n", m.Objective)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&prefs.Objective, "objective", "", "start a mission with this objective")
	cmd.Flags().StringVar(&prefs.TrackingType, "mode", string(domain.ModeStrict), "tracking mode")
	cmd.Flags().IntVar(&prefs.DailyGoal, "daily-goal", 4, "daily goal in focus sessions")
	cmd.Flags().StringSliceVar(&prefs.AllowedTools, "allow", nil, "allowed sites")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and mark the mission inactive on the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			return store.Logout(cmd.Context())
		},
	}
}

func newSettingsCmd(a *app) *cobra.Command {
	var (
		apiKey        string
		focus, short  int
		long          int
		theme         string
		notifications bool
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change persisted settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			settings, err := store.UpdateSettings(func(s *domain.Settings) {
				if flags.Changed("api-key") {
					s.APIKey = apiKey
				}
				if flags.Changed("focus-time") {
					s.FocusTime = focus
				}
				if flags.Changed("short-break") {
					s.ShortBreak = short
				}
				if flags.Changed("long-break") {
					s.LongBreak = long
				}
				if flags.Changed("theme") {
					s.Theme = theme
				}
				if flags.Changed("notifications") {
					s.Notifications = notifications
				}
			})
			if err != nil {
				return err
			}
			settings.APIKey = maskKey(settings.APIKey)
			return a.printJSON(settings)
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Gemini API key sent with every analysis")
	cmd.Flags().IntVar(&focus, "focus-time", 25, "focus minutes")
	cmd.Flags().IntVar(&short, "short-break", 5, "short break minutes")
	cmd.Flags().IntVar(&long, "long-break", 15, "long break minutes")
	cmd.Flags().StringVar(&theme, "theme", "zen", "UI theme")
	cmd.Flags().BoolVar(&notifications, "notifications", true, "enable notifications")
	return cmd
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + "..."
}
