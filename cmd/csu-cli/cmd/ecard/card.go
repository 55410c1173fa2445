package ecard

import (
	"strconv"

	"csuassist/cmd/csu-cli/globals"
	"csuassist/cmd/csu-cli/utils"
	portal "csuassist/internal/portals/ecard"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	turnoverFrom      string
	turnoverTo        string
	turnoverMinAmount float64
	turnoverMaxAmount float64
	turnoverSize      int
	turnoverPage      int
)

func init() {
	flags := turnoverCmd.Flags()
	flags.StringVar(&turnoverFrom, "from", "", "Start of the time range (ex. 2024-09-01).")
	flags.StringVar(&turnoverTo, "to", "", "End of the time range.")
	flags.Float64Var(&turnoverMinAmount, "min", 0, "Only transactions of at least this many yuan.")
	flags.Float64Var(&turnoverMaxAmount, "max", 0, "Only transactions of at most this many yuan.")
	flags.IntVar(&turnoverSize, "size", 100, "Page size.")
	flags.IntVar(&turnoverPage, "page", 1, "Page number, starting at 1.")

	RootCmd.AddCommand(balanceCmd)
	RootCmd.AddCommand(turnoverCmd)
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balance and state of every card.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		snapshot, err := ctx.Service.CardBalance(cmd.Context(), studentId, password)
		utils.Check(err)

		utils.Print(cmd, snapshot, func() {
			t := utils.NewTable()
			t.AppendHeader(table.Row{"Student id", "Name", "Account", "Balance", "Pending", "Frozen", "Lost", "Expires"})
			for _, c := range snapshot.Cards {
				t.AppendRow(table.Row{
					c.StudentId,
					c.Name,
					c.Account,
					utils.Yuan(c.Balance),
					utils.Yuan(c.Unsettled),
					strconv.FormatBool(c.Frozen),
					strconv.FormatBool(c.Lost),
					c.ExpireDate,
				})
			}
			t.Render()
		})
	},
}

var turnoverCmd = &cobra.Command{
	Use:   "turnover",
	Short: "List card transactions.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		query := portal.TurnoverQuery{
			TimeFrom: turnoverFrom,
			TimeTo:   turnoverTo,
			Size:     turnoverSize,
			Current:  turnoverPage,
		}
		if cmd.Flags().Changed("min") {
			query.AmountFrom = &turnoverMinAmount
		}
		if cmd.Flags().Changed("max") {
			query.AmountTo = &turnoverMaxAmount
		}

		page, err := ctx.Service.CardTurnover(cmd.Context(), studentId, password, query)
		utils.Check(err)

		utils.Print(cmd, page, func() {
			t := utils.NewTable()
			t.SetTitle("Page %d of %d, %d transactions", page.Current, page.Pages, page.Total)
			t.AppendHeader(table.Row{"Time", "Type", "Merchant", "Amount", "Description"})
			for _, r := range page.Records {
				t.AppendRow(table.Row{r.JnDatetimeStr, r.TurnoverType, r.ToMerchant, utils.Yuan(r.Amount), r.Resume})
			}
			t.Render()
		})
	},
}
