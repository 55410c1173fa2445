package ecard

import "github.com/spf13/cobra"

var RootCmd = &cobra.Command{
	Use:   "ecard",
	Short: "The 'ecard' subcommand reads the campus card balance and its transactions.",
}
