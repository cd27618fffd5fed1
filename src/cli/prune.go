package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"incus-autobackup/src/backup/retention"
	"incus-autobackup/src/config"
	"incus-autobackup/src/safety"
	"incus-autobackup/src/target"
)

func newPruneCmd(stdout, stderr io.Writer) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Run only the retention passes (daily expiry, weekly rotation)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tgtStr, _ := cmd.Flags().GetString("target")
			if tgtStr == "" {
				return errors.New("--target is required (e.g., dir:/path)")
			}
			tgt, err := target.Parse(tgtStr)
			if err != nil {
				return err
			}
			cfg, err := config.Load(tgt.DirPath, cfgFile)
			if err != nil {
				return err
			}

			now := time.Now()
			expired, err := retention.PlanDailyExpiry(cfg.Root, cfg.Retention.DailyMaxAge, now)
			if err != nil {
				return err
			}
			rotated, err := retention.PlanWeeklyRotation(cfg.Root, cfg.Retention.WeeklyKeep)
			if err != nil {
				return err
			}
			candidates := append(expired, rotated...)

			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tINSTANCE\tDATE\tREASON\tACTION")
			for _, c := range candidates {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\tdelete\n", c.Tier, c.Instance, c.Date, c.Reason)
			}
			_ = tw.Flush()

			opts := getSafetyOptions(cmd)
			if opts.DryRun || len(candidates) == 0 {
				return nil
			}
			ok, err := safety.Confirm(opts, os.Stdin, stdout, fmt.Sprintf("Delete %d archives?", len(candidates)))
			if err != nil || !ok {
				return err
			}
			log := newLogger(cmd, stderr)
			removed := retention.Apply(candidates, log)
			fmt.Fprintf(stdout, "Deleted %d archives\n", removed)
			return nil
		},
	}
	cmd.Flags().String("target", "", "Backup target URI (e.g., dir:/path)")
	cmd.Flags().StringVar(&cfgFile, "config", "", "Optional config file (settings also come from INCUS_AUTOBACKUP_* env)")
	return cmd
}
