package cmd

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"toolbelt/internal/formatting"
)

var healthWarmup bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report the state of configured dependencies",
	Long: `Report which configured dependencies are loaded. Required dependencies are
always probed at start-up; optional ones are probed lazily, so use --warmup
to probe every dependency before reporting.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	deps := application.Services().Dependencies

	if healthWarmup {
		var s *spinner.Spinner
		if formatter.GetOptions().Format == formatting.FormatTable {
			s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
			s.Suffix = " Probing dependencies..."
			s.FinalMSG = text.FgGreen.Sprint("Probed dependencies") + "\n"
			s.Start()
		}
		err := deps.Warmup(commandContext(cmd))
		if s != nil {
			s.Stop()
		}
		if err != nil {
			return err
		}
	}

	return formatter.FormatHealth(deps.HealthReport())
}

func init() {
	healthCmd.Flags().BoolVar(&healthWarmup, "warmup", false, "Probe every dependency before reporting")
	addOutputFlag(healthCmd.Flags())
}
