package jwc

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"csuassist/internal/failure"
	"csuassist/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const gradesMarker = "学生个人考试成绩"

type Grade struct {
	GottenTerm     string
	ClassName      string
	FinalGrade     string
	Credit         string
	ClassAttribute string
	ClassNature    string
}

// Grades returns the grade rows of a term, an empty term means every term.
func (c Client) Grades(ctx context.Context, term string) ([]Grade, error) {
	c.tel.ReportDebug("get grades", term)

	res, err := c.session.PostForm(ctx, c.endpoint(gradesPath), url.Values{
		"xnxq01id": {term},
	})
	if err != nil {
		return nil, c.fail(report_client_grades, fmt.Errorf("fetch: %w", err))
	}

	empty := failure.NewEmptyFields("grades")
	grades, err := parseGrades(res.Body, empty)
	if err != nil {
		return nil, c.fail(report_client_grades, err)
	}
	c.reportEmpty(report_client_grades, empty)
	c.tel.ReportCount(report_client_grades, int64(len(grades)))
	return grades, nil
}

// ParseGrades extracts grade rows from the grade list page.
func ParseGrades(body []byte) ([]Grade, error) {
	return parseGrades(body, nil)
}

func parseGrades(body []byte, empty *failure.EmptyFields) ([]Grade, error) {
	if !strings.Contains(string(body), gradesMarker) {
		return nil, &failure.PageMarkerMissing{Operation: "grades", Marker: gradesMarker}
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	grades := []Grade{}
	doc.Find("table#dataList tr").Each(func(i int, row *goquery.Selection) {
		// the first row is the column header
		if i == 0 {
			return
		}
		cells := htmlutil.CellTexts(row.Find("td"))
		grades = append(grades, Grade{
			GottenTerm:     htmlutil.At(cells, 3),
			ClassName:      empty.Check(i, "ClassName", htmlutil.At(cells, 4)),
			FinalGrade:     empty.Check(i, "FinalGrade", htmlutil.At(cells, 5)),
			Credit:         htmlutil.At(cells, 6),
			ClassAttribute: htmlutil.At(cells, 7),
			ClassNature:    htmlutil.At(cells, 8),
		})
	})
	return grades, nil
}
