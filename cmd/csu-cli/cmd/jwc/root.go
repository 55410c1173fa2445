package jwc

import "github.com/spf13/cobra"

var RootCmd = &cobra.Command{
	Use:   "jwc",
	Short: "The 'jwc' subcommand reads grades, ranks, schedules and student records from the academic affairs system.",
}
