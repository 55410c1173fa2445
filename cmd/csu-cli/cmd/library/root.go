package library

import "github.com/spf13/cobra"

var RootCmd = &cobra.Command{
	Use:   "library",
	Short: "The 'library' subcommand searches the catalog and e-resources and shows seat availability.",
}
