package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"incus-autobackup/src/backup/run"
	"incus-autobackup/src/config"
	"incus-autobackup/src/incusapi"
	"incus-autobackup/src/target"
)

func newRunCmd(stdout, stderr io.Writer) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one scheduled backup run (preflight, pipeline, retention)",
		Long: `Execute one full backup run, normally invoked by a systemd timer or cron.

Each instance is snapshotted, published as a compressed image, exported to
the daily tier and the remote intermediates are cleaned up. On the promotion
weekday finished daily archives are copied to the weekly tier. After all
instances are processed, daily archives past their maximum age are expired
and weekly archives are rotated down to the configured count.

The exit code is 0 whenever the run executed, even if individual instances
failed or were skipped; it is non-zero only when a fatal precondition
(privilege, mount, capacity, API reachability) prevented any work.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tgtStr, _ := cmd.Flags().GetString("target")
			if tgtStr == "" {
				return errors.New("--target is required (e.g., dir:/mnt/backup/incus)")
			}
			tgt, err := target.Parse(tgtStr)
			if err != nil {
				return err
			}
			cfg, err := config.Load(tgt.DirPath, cfgFile)
			if err != nil {
				return err
			}
			log := newLogger(cmd, stderr)

			// Gate before touching the API socket: an unmounted target
			// must abort the run even when the daemon is down too.
			if err := run.Preflight(cfg); err != nil {
				return err
			}
			client, err := incusapi.ConnectLocal()
			if err != nil {
				return &run.DependencyError{Op: "connect", Err: err}
			}
			runner := &run.Runner{
				Client: client,
				Config: cfg,
				Log:    log,
				Gate:   func(config.Config) error { return nil }, // gated above
			}
			_, err = runner.Run(cmd.Context())
			return err
		},
	}
	cmd.Flags().String("target", "", "Backup target URI (e.g., dir:/mnt/backup/incus)")
	cmd.Flags().StringVar(&cfgFile, "config", "", "Optional config file (settings also come from INCUS_AUTOBACKUP_* env)")
	return cmd
}
