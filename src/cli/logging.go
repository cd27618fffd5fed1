package cli

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newLogger builds the structured log stream for a command. Unattended runs
// are read from journals, so every line carries a full timestamp.
func newLogger(cmd *cobra.Command, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvlStr, _ := cmd.Root().PersistentFlags().GetString("log-level")
	lvl, err := logrus.ParseLevel(lvlStr)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
