package jwc

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Summary fetches grades (of one term, or of every term when term is empty)
// and the ranking of every term, then renders them with RenderSummary.
func (c Client) Summary(ctx context.Context, term string) (string, error) {
	grades, err := c.Grades(ctx, term)
	if err != nil {
		return "", err
	}
	ranks, err := c.Rank(ctx)
	if err != nil {
		return "", err
	}
	return RenderSummary(grades, ranks), nil
}

type creditTotals struct {
	credits  float64
	weighted float64
	// graded is the credit sum of the courses with a numeric grade
	graded float64
}

func (t *creditTotals) add(g Grade) {
	credit, err := strconv.ParseFloat(g.Credit, 64)
	if err != nil {
		return
	}
	t.credits += credit
	score, err := strconv.ParseFloat(g.FinalGrade, 64)
	if err != nil {
		return
	}
	t.weighted += score * credit
	t.graded += credit
}

func (t creditTotals) line() string {
	average := "-"
	if t.graded > 0 {
		average = strconv.FormatFloat(t.weighted/t.graded, 'f', 2, 64)
	}
	return fmt.Sprintf(
		"学分合计：%s，加权平均分：%s",
		strconv.FormatFloat(t.credits, 'f', -1, 64),
		average,
	)
}

// RenderSummary renders grades grouped by term (latest term first) followed
// by the ranking table as markdown. The average only weighs grades that are
// numbers, grades such as "优" or "通过" still count towards the credits.
func RenderSummary(grades []Grade, ranks []Rank) string {
	byTerm := map[string][]Grade{}
	for _, g := range grades {
		byTerm[g.GottenTerm] = append(byTerm[g.GottenTerm], g)
	}
	terms := make([]string, 0, len(byTerm))
	for term := range byTerm {
		terms = append(terms, term)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(terms)))

	out := strings.Builder{}
	out.WriteString("# 成绩汇总\n")

	overall := creditTotals{}
	for _, term := range terms {
		title := term
		if title == "" {
			title = "未知学期"
		}
		fmt.Fprintf(&out, "\n## %s\n\n", title)

		t := table.NewWriter()
		t.AppendHeader(table.Row{"课程", "成绩", "学分", "课程属性", "课程性质"})
		totals := creditTotals{}
		for _, g := range byTerm[term] {
			t.AppendRow(table.Row{g.ClassName, g.FinalGrade, g.Credit, g.ClassAttribute, g.ClassNature})
			totals.add(g)
			overall.add(g)
		}
		out.WriteString(t.RenderMarkdown())
		out.WriteString("\n\n")
		out.WriteString(totals.line())
		out.WriteString("\n")
	}

	fmt.Fprintf(&out, "\n## 总计\n\n%s\n", overall.line())

	if len(ranks) > 0 {
		out.WriteString("\n## 排名\n\n")
		t := table.NewWriter()
		t.AppendHeader(table.Row{"学期", "总成绩", "班级排名", "平均成绩"})
		for _, r := range ranks {
			t.AppendRow(table.Row{r.Term, r.TotalScore, r.ClassRank, r.AverScore})
		}
		out.WriteString(t.RenderMarkdown())
		out.WriteString("\n")
	}
	return out.String()
}
