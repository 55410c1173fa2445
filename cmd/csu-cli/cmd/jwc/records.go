package jwc

import (
	"fmt"

	"csuassist/cmd/csu-cli/globals"
	"csuassist/cmd/csu-cli/utils"
	portal "csuassist/internal/portals/jwc"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var withPlans bool

func init() {
	minorCmd.Flags().BoolVar(&withPlans, "plans", false, "Also fetch the course plan of every registration.")

	RootCmd.AddCommand(profileCmd)
	RootCmd.AddCommand(minorCmd)
	RootCmd.AddCommand(planCmd)
}

func renderRows(title string, rows []portal.ProfileRow) {
	if len(rows) == 0 {
		return
	}
	t := utils.NewTable()
	t.SetTitle(title)
	for _, row := range rows {
		out := make(table.Row, len(row))
		for i, cell := range row {
			out[i] = cell
		}
		t.AppendRow(out)
	}
	t.Render()
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the student profile card.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		profile, err := ctx.Service.Profile(cmd.Context(), studentId, password)
		utils.Check(err)

		utils.Print(cmd, profile, func() {
			t := utils.NewTable()
			for _, field := range profile.Fields {
				t.AppendRow(table.Row{field.Label, field.Value})
			}
			t.Render()

			renderRows("Education", profile.Education)
			renderRows("Family", profile.Family)
			renderRows("Status changes", profile.StatusChanges)
		})
	},
}

func renderPlan(title string, plan []portal.PlanCourse) {
	t := utils.NewTable()
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Term", "Id", "Course", "Credit", "Hours", "Exam", "Attribute"})
	for _, c := range plan {
		t.AppendRow(table.Row{c.Term, c.CourseId, c.CourseName, c.Credit, c.Hours, c.ExamType, c.CourseAttr})
	}
	t.Render()
}

var minorCmd = &cobra.Command{
	Use:   "minor",
	Short: "List minor program registrations and payments.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		minor, err := ctx.Service.Minor(cmd.Context(), studentId, password, withPlans)
		utils.Check(err)

		utils.Print(cmd, minor, func() {
			t := utils.NewTable()
			t.SetTitle("Registrations")
			t.AppendHeader(table.Row{"#", "Major", "Department", "Type", "Status"})
			for _, r := range minor.Registrations {
				t.AppendRow(table.Row{r.Index, r.Major, r.Department, r.Type, r.Status})
			}
			t.Render()

			for _, r := range minor.Registrations {
				if r.PlanError != "" {
					fmt.Printf("plan of %s: %s\n", r.Major, r.PlanError)
					continue
				}
				if len(r.Plan) > 0 {
					renderPlan(r.Major, r.Plan)
				}
			}

			p := utils.NewTable()
			p.SetTitle("Payments")
			p.AppendHeader(table.Row{"Course", "Teacher", "Credit", "Fee", "Paid"})
			for _, pay := range minor.Payments {
				p.AppendRow(table.Row{pay.CourseName, pay.Teacher, pay.Credit, pay.Fee, pay.Paid})
			}
			p.Render()
		})
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "List the courses of the training plan.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := globals.Get(cmd.Context())
		studentId, password := ctx.Credentials()

		plan, err := ctx.Service.StudentPlan(cmd.Context(), studentId, password)
		utils.Check(err)

		utils.Print(cmd, plan, func() {
			renderPlan("Training plan", plan)
		})
	},
}
