package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mission and drift status as the relay reports them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.relay.MissionStatus(ctx)
			if err != nil {
				return err
			}
			d, err := a.relay.DriftStatus(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Mission: active=%t mode=%s objective=%q allowed=%v (pushed %s)\n",
				m.IsActive, m.Mode, m.Objective, m.AllowedSites, ago(m.Timestamp))
			fmt.Fprintf(a.out, "Drift:   drifted=%t message=%q (pushed %s)\n",
				d.IsDrifted, d.Message, ago(d.Timestamp))
			return nil
		},
	}
}

func ago(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.Since(time.UnixMilli(ms)).Round(time.Second).String() + " ago"
}
