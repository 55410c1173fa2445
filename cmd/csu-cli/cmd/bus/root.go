package bus

import (
	"time"

	"csuassist/cmd/csu-cli/globals"
	"csuassist/cmd/csu-cli/utils"
	"csuassist/internal/components/chrono"
	portal "csuassist/internal/portals/bus"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	date     string
	departAt string
	departBy string
)

func init() {
	RootCmd.Flags().StringVar(&date, "date", "", "Day of travel as YYYY-MM-DD, today by default.")
	RootCmd.Flags().StringVar(&departAt, "after", "00:00", "Earliest departure time.")
	RootCmd.Flags().StringVar(&departBy, "before", "23:59", "Latest departure time.")
}

var RootCmd = &cobra.Command{
	Use:   "bus <from> <to>",
	Short: "List shuttle bus departures between two stations.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())

		day := date
		if day == "" {
			day = time.Now().In(chrono.CampusLocation()).Format("2006-01-02")
		}
		departures, err := ctx.Service.Bus(cmd.Context(), portal.Query{
			Date:           day,
			StartStation:   args[0],
			EndStation:     args[1],
			StartTimeLeft:  departAt,
			StartTimeRight: departBy,
		})
		utils.Check(err)

		utils.Print(cmd, departures, func() {
			t := utils.NewTable()
			t.AppendHeader(table.Row{"Departs", "Stops", "Details"})
			for _, d := range departures {
				t.AppendRow(table.Row{d.StartTime, utils.Join(d.Stations), d.DetailUrl})
			}
			t.Render()
		})
	},
}
