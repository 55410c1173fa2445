package jwc

import (
	"fmt"

	"csuassist/cmd/csu-cli/globals"
	"csuassist/cmd/csu-cli/utils"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(gradesCmd)
	RootCmd.AddCommand(rankCmd)
	RootCmd.AddCommand(levelExamsCmd)
	RootCmd.AddCommand(summaryCmd)
}

var gradesCmd = &cobra.Command{
	Use:   "grades [term]",
	Short: "List grades of a term (ex. 2024-2025-1), every term when none is given.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		term := ""
		if len(args) > 0 {
			term = args[0]
		}
		grades, err := ctx.Service.Grades(cmd.Context(), studentId, password, term)
		utils.Check(err)

		utils.Print(cmd, grades, func() {
			t := utils.NewTable()
			t.AppendHeader(table.Row{"Term", "Course", "Grade", "Credit", "Attribute", "Nature"})
			for _, g := range grades {
				t.AppendRow(table.Row{g.GottenTerm, g.ClassName, g.FinalGrade, g.Credit, g.ClassAttribute, g.ClassNature})
			}
			t.Render()
		})
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "List the weighted score and class rank of every term.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		ranks, err := ctx.Service.Rank(cmd.Context(), studentId, password)
		utils.Check(err)

		utils.Print(cmd, ranks, func() {
			t := utils.NewTable()
			t.AppendHeader(table.Row{"Term", "Total score", "Class rank", "Average"})
			for _, r := range ranks {
				t.AppendRow(table.Row{r.Term, r.TotalScore, r.ClassRank, r.AverScore})
			}
			t.Render()
		})
	},
}

var levelExamsCmd = &cobra.Command{
	Use:   "level-exams",
	Short: "List level exam (CET and similar) results.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		exams, err := ctx.Service.LevelExams(cmd.Context(), studentId, password)
		utils.Check(err)

		utils.Print(cmd, exams, func() {
			t := utils.NewTable()
			t.AppendHeader(table.Row{"Course", "Written", "Computer", "Total", "Level", "Date"})
			for _, e := range exams {
				t.AppendRow(table.Row{e.Course, e.WrittenScore, e.ComputerScore, e.TotalScore, e.TotalLevel, e.ExamDate})
			}
			t.Render()
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary [term]",
	Short: "Print grades and ranks as a markdown report.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		term := ""
		if len(args) > 0 {
			term = args[0]
		}
		summary, err := ctx.Service.Summary(cmd.Context(), studentId, password, term)
		utils.Check(err)

		utils.Print(cmd, map[string]string{"markdown": summary}, func() {
			fmt.Println(summary)
		})
	},
}
