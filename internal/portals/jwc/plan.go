package jwc

import (
	"context"
	"fmt"

	"csuassist/internal/failure"
	"csuassist/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// PlanCourse is one course of a training plan, both the student's own plan
// and the plans attached to minor-program registrations use this layout.
// AdjustReason is only filled on the student's own plan.
type PlanCourse struct {
	Index        string
	Term         string
	CourseId     string
	CourseName   string
	Credit       string
	Hours        string
	ExamType     string
	CourseAttr   string
	IsExam       string
	AdjustReason string
}

// StudentPlan returns the courses of the student's training plan.
func (c Client) StudentPlan(ctx context.Context) ([]PlanCourse, error) {
	c.tel.ReportDebug("get student plan")

	res, err := c.session.Get(ctx, c.endpoint(studentPlanPath), nil)
	if err != nil {
		return nil, c.fail(report_client_student_plan, fmt.Errorf("fetch: %w", err))
	}

	empty := failure.NewEmptyFields("student-plan")
	courses, err := parsePlan("student-plan", res.Body, empty)
	if err != nil {
		return nil, c.fail(report_client_student_plan, err)
	}
	c.reportEmpty(report_client_student_plan, empty)
	c.tel.ReportCount(report_client_student_plan, int64(len(courses)))
	return courses, nil
}

// ParsePlan extracts the course rows of a training plan page.
func ParsePlan(body []byte) ([]PlanCourse, error) {
	return parsePlan("plan", body, nil)
}

func parsePlan(operation string, body []byte, empty *failure.EmptyFields) ([]PlanCourse, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	if doc.Find("table#dataList").Length() == 0 {
		return nil, &failure.PageMarkerMissing{Operation: operation, Marker: "table#dataList"}
	}

	courses := []PlanCourse{}
	dataRows(doc).Each(func(i int, row *goquery.Selection) {
		cells := htmlutil.CellTexts(row.Find("td"))
		courses = append(courses, PlanCourse{
			Index:        htmlutil.At(cells, 0),
			Term:         htmlutil.At(cells, 1),
			CourseId:     empty.Check(i, "CourseId", htmlutil.At(cells, 2)),
			CourseName:   empty.Check(i, "CourseName", htmlutil.At(cells, 3)),
			Credit:       htmlutil.At(cells, 4),
			Hours:        htmlutil.At(cells, 5),
			ExamType:     htmlutil.At(cells, 6),
			CourseAttr:   htmlutil.At(cells, 7),
			IsExam:       htmlutil.At(cells, 8),
			AdjustReason: htmlutil.At(cells, 9),
		})
	})
	return courses, nil
}
