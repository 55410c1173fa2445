package library

import (
	"strconv"

	"csuassist/cmd/csu-cli/globals"
	"csuassist/cmd/csu-cli/utils"
	portal "csuassist/internal/portals/library"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(databasesCmd)
	RootCmd.AddCommand(booksCmd)
	RootCmd.AddCommand(copiesCmd)
}

func renderDatabases(title string, entries []portal.DatabaseEntry) {
	t := utils.NewTable()
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "Name", "Url"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Index, e.Name, e.DetailUrl})
	}
	t.Render()
}

var databasesCmd = &cobra.Command{
	Use:   "databases <name>",
	Short: "Search the e-resource database index by name.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())

		result, err := ctx.Service.LibraryDBSearch(cmd.Context(), args[0])
		utils.Check(err)

		utils.Print(cmd, result, func() {
			renderDatabases("Chinese", result.Chinese)
			renderDatabases("Foreign", result.Foreign)
		})
	},
}

var booksCmd = &cobra.Command{
	Use:   "books <keyword>",
	Short: "Search the catalog.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		result, err := ctx.Service.BookSearch(cmd.Context(), studentId, password, args[0])
		utils.Check(err)

		utils.Print(cmd, result, func() {
			t := utils.NewTable()
			t.SetTitle("%d results", result.Total)
			t.AppendHeader(table.Row{"Record", "Title", "Author", "Publisher", "Year", "Call no.", "On shelf"})
			for _, b := range result.Items {
				t.AppendRow(table.Row{
					b.RecordId,
					b.Title,
					b.Author,
					b.Publisher,
					b.PublishYear,
					utils.Join(b.CallNo),
					strconv.FormatInt(b.OnShelfCount, 10) + "/" + strconv.FormatInt(b.PhysicalCount, 10),
				})
			}
			t.Render()
		})
	},
}

var copiesCmd = &cobra.Command{
	Use:   "copies <record id>",
	Short: "List the physical copies of a catalog record.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		result, err := ctx.Service.BookCopies(cmd.Context(), studentId, password, args[0])
		utils.Check(err)

		utils.Print(cmd, result, func() {
			t := utils.NewTable()
			t.AppendHeader(table.Row{"Barcode", "Call no.", "Library", "Location", "Status", "Policy"})
			for _, c := range result.Items {
				t.AppendRow(table.Row{c.Barcode, c.CallNo, c.LibName, c.CurLocationName, c.ProcessType, c.ItemPolicyName})
			}
			t.Render()
		})
	},
}
