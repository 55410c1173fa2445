package jwc

import (
	"csuassist/cmd/csu-cli/globals"
	"csuassist/cmd/csu-cli/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <term> [week]",
	Short: "List the classes of a term, or of one week of it. Week 0 means the whole term.",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		week := "0"
		if len(args) > 1 {
			week = args[1]
		}
		schedule, err := ctx.Service.Schedule(cmd.Context(), studentId, password, args[0], week)
		utils.Check(err)

		utils.Print(cmd, schedule, func() {
			t := utils.NewTable()
			t.SetTitle("Week 1 starts %s", schedule.StartWeekDay)
			t.AppendHeader(table.Row{"Day", "Period", "Class", "Teacher", "Weeks", "Place"})
			for _, cell := range schedule.Cells {
				for _, entry := range cell {
					t.AppendRow(table.Row{
						entry.TimeInWeek,
						entry.TimeInDay,
						entry.ClassName,
						entry.Teacher,
						entry.Weeks,
						entry.Place,
					})
				}
			}
			t.Render()
		})
	},
}
