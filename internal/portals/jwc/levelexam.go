package jwc

import (
	"context"
	"fmt"
	"strings"

	"csuassist/internal/failure"
	"csuassist/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const levelExamsMarker = "等级考试"

type LevelExam struct {
	Course        string
	WrittenScore  string
	ComputerScore string
	TotalScore    string
	WrittenLevel  string
	ComputerLevel string
	TotalLevel    string
	ExamDate      string
}

func (c Client) LevelExams(ctx context.Context) ([]LevelExam, error) {
	c.tel.ReportDebug("get level exams")

	res, err := c.session.Get(ctx, c.endpoint(levelExamsPath), nil)
	if err != nil {
		return nil, c.fail(report_client_level_exams, fmt.Errorf("fetch: %w", err))
	}

	empty := failure.NewEmptyFields("level-exams")
	exams, err := parseLevelExams(res.Body, empty)
	if err != nil {
		return nil, c.fail(report_client_level_exams, err)
	}
	c.reportEmpty(report_client_level_exams, empty)
	c.tel.ReportCount(report_client_level_exams, int64(len(exams)))
	return exams, nil
}

func ParseLevelExams(body []byte) ([]LevelExam, error) {
	return parseLevelExams(body, nil)
}

func parseLevelExams(body []byte, empty *failure.EmptyFields) ([]LevelExam, error) {
	if !strings.Contains(string(body), levelExamsMarker) {
		return nil, &failure.PageMarkerMissing{Operation: "level-exams", Marker: levelExamsMarker}
	}
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	exams := []LevelExam{}
	doc.Find("table#dataList tr").Each(func(i int, row *goquery.Selection) {
		// the header spans two rows, written/computer sub-columns on the second
		if i < 2 {
			return
		}
		cells := htmlutil.CellTexts(row.Find("td"))
		if len(cells) == 0 {
			return
		}
		exams = append(exams, LevelExam{
			Course:        empty.Check(i, "Course", htmlutil.At(cells, 1)),
			WrittenScore:  htmlutil.At(cells, 2),
			ComputerScore: htmlutil.At(cells, 3),
			TotalScore:    htmlutil.At(cells, 4),
			WrittenLevel:  htmlutil.At(cells, 5),
			ComputerLevel: htmlutil.At(cells, 6),
			TotalLevel:    htmlutil.At(cells, 7),
			ExamDate:      empty.Check(i, "ExamDate", htmlutil.At(cells, 8)),
		})
	})
	return exams, nil
}
