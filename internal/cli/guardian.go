package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/guardian"
	"github.com/xela07ax/mindtussle/internal/monitor"
)

// probeModels — модели, которые имеет смысл проверить с новым ключом.
var probeModels = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-flash-latest",
	"gemini-1.5-pro",
	"gemini-pro",
}

func newGuardianCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guardian",
		Short: "Talk to the guardian classifier",
	}
	cmd.AddCommand(newGuardianAnalyzeCmd(a), newGuardianProbeCmd(a), newGuardianHistoryCmd(a))
	return cmd
}

func newGuardianAnalyzeCmd(a *app) *cobra.Command {
	var (
		image string
		allow []string
	)
	cmd := &cobra.Command{
		Use:   "analyze [content]",
		Short: "Send one analysis request through the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := domain.GuardianRequest{
				Content:      strings.Join(args, " "),
				AllowedTools: allow,
			}
			if image != "" {
				frame, err := monitor.FileSource{Path: image}.Next(cmd.Context())
				if err != nil {
					return err
				}
				if req.Image, err = monitor.EncodeDataURL(frame); err != nil {
					return err
				}
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			req.APIKey = store.Settings().APIKey
			if req.AllowedTools == nil {
				if m, ok := store.Mission(); ok {
					req.AllowedTools = m.AllowedTools
				}
			}
			if req.Content == "" {
				objective := "Focus on productive work"
				if m, ok := store.Mission(); ok && m.Objective != "" {
					objective = m.Objective
				}
				req.Content = "USER MISSION: " + objective
			}

			v, err := a.relay.Guardian(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.printJSON(v)
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "screenshot to attach")
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "allowed sites (default: the mission's)")
	return cmd
}

func newGuardianProbeCmd(a *app) *cobra.Command {
	var (
		apiKey string
		models []string
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check which models answer with the given key",
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := guardian.NewFactory(a.cfg.Guardian)
			if err != nil {
				return err
			}
			if apiKey == "" {
				apiKey = a.cfg.Guardian.APIKey
			}
			if apiKey == "" && factory.RequiresKey() {
				store, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				apiKey = store.Settings().APIKey
			}
			if apiKey == "" && factory.RequiresKey() {
				return errors.New("no API key: pass --api-key, set guardian.api_key or run `focusctl settings --api-key`")
			}

			gen, err := factory.ForKey(cmd.Context(), apiKey)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tSTATUS\tELAPSED\tREPLY")
			ok := 0
			for _, r := range guardian.Probe(cmd.Context(), gen, models, a.cfg.Guardian.Timeout) {
				status, reply := "✅", strings.ReplaceAll(r.Reply, "\n", " ")
				if r.Err != nil {
					status, reply = "❌", r.Err.Error()
				} else {
					ok++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Model, status, r.Elapsed.Round(time.Millisecond), reply)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if ok == 0 {
				fmt.Fprintln(os.Stderr, "No model answered.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&apiKey, "api-key", "", "key to probe with")
	cmd.Flags().StringSliceVar(&models, "models", probeModels, "models to try")
	return cmd
}

func newGuardianHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent verdicts recorded by the relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := a.relay.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tOUTCOME\tVERDICT\tSCORE\tMODEL\tBLOCKED")
			for _, e := range events {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.Outcome, e.Verdict, e.Score, e.Model,
					strings.Join(e.BlockedSites, ","))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of verdicts")
	return cmd
}
