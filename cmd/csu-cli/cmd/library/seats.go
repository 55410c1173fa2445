package library

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"csuassist/cmd/csu-cli/globals"
	"csuassist/cmd/csu-cli/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	fetchMethod string
	fetchForm   []string
)

func init() {
	fetchCmd.Flags().StringVarP(&fetchMethod, "method", "X", "GET", "Request method.")
	fetchCmd.Flags().StringArrayVarP(&fetchForm, "form", "F", nil, "Form field as key=value, can be repeated.")

	RootCmd.AddCommand(seatsCmd)
	RootCmd.AddCommand(fetchCmd)
}

var seatsCmd = &cobra.Command{
	Use:   "seats",
	Short: "Show how many seats are left in every library.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())

		overview, err := ctx.Service.Seats(cmd.Context())
		utils.Check(err)

		utils.Print(cmd, overview, func() {
			t := utils.NewTable()
			t.AppendHeader(table.Row{"Library", "Floor", "Remaining", "Total"})
			for _, campus := range overview.Campuses {
				t.AppendRow(table.Row{campus.Name, "", campus.Remaining, campus.Total})
				for _, floor := range campus.Floors {
					t.AppendRow(table.Row{"", floor.Name, floor.Remaining, floor.Total})
				}
				if campus.FloorsError != "" {
					t.AppendRow(table.Row{"", campus.FloorsError, "", ""})
				}
			}
			t.Render()
		})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Issue a request to the library portal after logging into it and print the response.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		var form url.Values
		for _, field := range fetchForm {
			key, value, ok := strings.Cut(field, "=")
			if !ok {
				fmt.Fprintf(os.Stderr, "form field %q is not key=value\n", field)
				os.Exit(1)
			}
			if form == nil {
				form = url.Values{}
			}
			form.Add(key, value)
		}

		page, err := ctx.Service.LibraryFetch(cmd.Context(), studentId, password, fetchMethod, args[0], form)
		utils.Check(err)

		utils.Print(cmd, page, func() {
			fmt.Fprintf(os.Stderr, "%d %s\n", page.Status, page.FinalUrl)
			fmt.Println(page.Body)
		})
	},
}
