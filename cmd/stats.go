package cmd

import (
	"github.com/spf13/cobra"
)

var statsTop int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show registry usage statistics",
	Long: `Show the number of registered tools, recorded calls, the average success
rate of used tools, tools per category and the most used tools.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	return formatter.FormatStatistics(application.Services().Registry.Statistics(statsTop))
}

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", 5, "Number of most used tools to show")
	addOutputFlag(statsCmd.Flags())
}
