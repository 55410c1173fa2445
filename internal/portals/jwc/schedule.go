package jwc

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"csuassist/internal/components/chrono"
	"csuassist/internal/failure"
	"csuassist/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type ClassEntry struct {
	ClassName  string
	Teacher    string
	Weeks      string
	Place      string
	TimeInWeek string
	TimeInDay  string
}

type Schedule struct {
	// Cells holds one element per grid cell in row-major order, a cell holds
	// zero, one or two classes.
	Cells [][]ClassEntry
	// StartWeekDay is the first day of week 1 as printed by the page,
	// ex. "2024年09月02".
	StartWeekDay string
	// StartDate is StartWeekDay parsed in the campus time zone, it is the zero
	// time when the page did not print a parsable date.
	StartDate time.Time
}

const (
	labelTeacher = "老师"
	labelWeeks   = "周次(节次)"
	labelPlace   = "教室"

	labelsPerEntry = 3
)

var startWeekRegex = regexp.MustCompile(`第1周\s*(.+?)日至`)

// Schedule fetches the class grid of a term, week "0" means the whole term.
func (c Client) Schedule(ctx context.Context, term, week string) (Schedule, error) {
	c.tel.ReportDebug("get schedule", term, week)

	if week == "0" {
		week = ""
	}
	res, err := c.session.PostForm(ctx, c.endpoint(schedulePath), url.Values{
		"zc":       {week},
		"xnxq01id": {term},
		"sfFD":     {"1"},
	})
	if err != nil {
		return Schedule{}, c.fail(report_client_schedule, fmt.Errorf("fetch: %w", err))
	}

	schedule, err := ParseSchedule(res.Body)
	if err != nil {
		return Schedule{}, c.fail(report_client_schedule, err)
	}
	if schedule.StartWeekDay != "" && schedule.StartDate.IsZero() {
		c.tel.ReportWarning(
			report_client_schedule,
			fmt.Errorf("could not parse start date %q", schedule.StartWeekDay),
		)
	}

	count := 0
	for _, cell := range schedule.Cells {
		count += len(cell)
	}
	c.tel.ReportCount(report_client_schedule, int64(count))
	return schedule, nil
}

// ParseSchedule extracts the class grid and the first-week start date.
func ParseSchedule(body []byte) (Schedule, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return Schedule{}, err
	}
	tables := doc.Find("table#kbtable")
	if tables.Length() == 0 {
		return Schedule{}, &failure.PageMarkerMissing{Operation: "schedule", Marker: "table#kbtable"}
	}

	schedule := Schedule{Cells: [][]ClassEntry{}}
	tables.Eq(0).Find("tr").Each(func(_ int, row *goquery.Selection) {
		timeInDay := htmlutil.Text(row.Find("th").Eq(0))
		row.Find("td").Each(func(col int, cell *goquery.Selection) {
			schedule.Cells = append(schedule.Cells, parseCell(cell, strconv.Itoa(col+1), timeInDay))
		})
	})

	info := htmlutil.Text(tables.Eq(1).Find("td").Eq(0))
	groups := startWeekRegex.FindStringSubmatch(info)
	if len(groups) >= 2 {
		schedule.StartWeekDay = groups[1]
		// a parse failure leaves StartDate zero, the raw text is still returned
		schedule.StartDate, _ = chrono.ParseDate("2006年1月2", groups[1])
	}
	return schedule, nil
}

func isEntryLabel(title string) bool {
	return title == labelTeacher || title == labelWeeks || title == labelPlace
}

// parseCell turns one grid cell into its classes. Every class is rendered as
// three label nodes (teacher, weeks, room) preceded by the class name as
// plain text. When some labels carry those titles only the titled ones are
// counted, stray fonts without a title are ignored.
func parseCell(cell *goquery.Selection, timeInWeek, timeInDay string) []ClassEntry {
	fonts := cell.Find("div.kbcontent font")
	titled := fonts.FilterFunction(func(_ int, font *goquery.Selection) bool {
		title, ok := font.Attr("title")
		return ok && isEntryLabel(title)
	})
	if titled.Length() > 0 {
		fonts = titled
	}

	var count int
	switch fonts.Length() {
	case labelsPerEntry:
		count = 1
	case labelsPerEntry * 2:
		count = 2
	default:
		return []ClassEntry{}
	}

	entries := make([]ClassEntry, 0, count)
	for i := 0; i < count; i++ {
		group := fonts.Slice(i*labelsPerEntry, (i+1)*labelsPerEntry)
		entry := ClassEntry{
			TimeInWeek: timeInWeek,
			TimeInDay:  timeInDay,
		}

		first := group.Eq(0)
		container := first.Closest("div.kbcontent")
		if len(first.Nodes) > 0 && len(container.Nodes) > 0 {
			entry.ClassName = htmlutil.PrecedingText(first.Nodes[0], container.Nodes[0], "font")
		}

		positional := []*string{&entry.Teacher, &entry.Weeks, &entry.Place}
		group.Each(func(j int, font *goquery.Selection) {
			text := htmlutil.Text(font)
			title, _ := font.Attr("title")
			switch title {
			case labelTeacher:
				entry.Teacher = text
			case labelWeeks:
				entry.Weeks = text
			case labelPlace:
				entry.Place = text
			default:
				*positional[j] = text
			}
		})
		entries = append(entries, entry)
	}
	return entries
}
