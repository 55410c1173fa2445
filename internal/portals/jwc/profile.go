package jwc

import (
	"context"
	"fmt"
	"strings"

	"csuassist/internal/failure"
	"csuassist/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type ProfileField struct {
	Label string
	Value string
}

// ProfileRow holds the cleaned cell texts of one row in a profile section.
type ProfileRow []string

// Profile is the student status card (学籍卡片).
type Profile struct {
	// Fields are the label/value pairs of the card header in page order.
	Fields        []ProfileField
	Education     []ProfileRow
	Family        []ProfileRow
	StatusChanges []ProfileRow
}

// Field returns the value of the first field with the given label, the
// trailing colon of the label is optional.
func (p Profile) Field(label string) string {
	label = trimLabel(label)
	for _, f := range p.Fields {
		if f.Label == label {
			return f.Value
		}
	}
	return ""
}

type profileSection int

const (
	sectionEducation profileSection = iota
	sectionFamily
	sectionStatusChanges
)

var sectionHeaders = []struct {
	section  profileSection
	prefixes []string
}{
	{sectionEducation, []string{"学习与工作经历", "教育经历", "学习经历"}},
	{sectionFamily, []string{"家庭成员"}},
	{sectionStatusChanges, []string{"学籍异动"}},
}

func (c Client) Profile(ctx context.Context) (Profile, error) {
	c.tel.ReportDebug("get profile")

	res, err := c.session.Get(ctx, c.endpoint(profilePath), nil)
	if err != nil {
		return Profile{}, c.fail(report_client_profile, fmt.Errorf("fetch: %w", err))
	}
	profile, err := ParseProfile(res.Body)
	if err != nil {
		return Profile{}, c.fail(report_client_profile, err)
	}
	for _, f := range profile.Fields {
		if f.Value == "" {
			c.tel.ReportWarning(report_client_profile, failure.EmptyField{
				Operation: "profile",
				Field:     f.Label,
			})
		}
	}
	c.tel.ReportCount(report_client_profile, int64(len(profile.Fields)))
	return profile, nil
}

func ParseProfile(body []byte) (Profile, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return Profile{}, err
	}
	table := doc.Find("#xjkpTable")
	if table.Length() == 0 {
		return Profile{}, &failure.PageMarkerMissing{Operation: "profile", Marker: "#xjkpTable"}
	}

	rows := []ProfileRow{}
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		rows = append(rows, htmlutil.CellTexts(row.Find("td, th")))
	})

	type header struct {
		section profileSection
		row     int
	}
	headers := []header{}
	for i, row := range rows {
		section, ok := matchSection(strings.Join(row, ""))
		if ok {
			headers = append(headers, header{section: section, row: i})
		}
	}

	fieldsEnd := len(rows)
	if len(headers) > 0 {
		fieldsEnd = headers[0].row
	}
	profile := Profile{
		Fields:        parseProfileFields(rows[:fieldsEnd]),
		Education:     []ProfileRow{},
		Family:        []ProfileRow{},
		StatusChanges: []ProfileRow{},
	}

	for i, h := range headers {
		end := len(rows)
		if i+1 < len(headers) {
			end = headers[i+1].row
		}
		entries := sectionEntries(rows[h.row+1 : end])
		switch h.section {
		case sectionEducation:
			profile.Education = append(profile.Education, entries...)
		case sectionFamily:
			profile.Family = append(profile.Family, entries...)
		case sectionStatusChanges:
			profile.StatusChanges = append(profile.StatusChanges, entries...)
		}
	}
	return profile, nil
}

func matchSection(text string) (profileSection, bool) {
	for _, h := range sectionHeaders {
		for _, prefix := range h.prefixes {
			if strings.HasPrefix(text, prefix) {
				return h.section, true
			}
		}
	}
	return 0, false
}

func isLabel(cell string) bool {
	return strings.HasSuffix(cell, "：") || strings.HasSuffix(cell, ":")
}

func trimLabel(label string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(label, "："), ":"))
}

// parseProfileFields pairs every label cell with the cell right after it.
func parseProfileFields(rows []ProfileRow) []ProfileField {
	fields := []ProfileField{}
	for _, row := range rows {
		for i := 0; i < len(row); i++ {
			if !isLabel(row[i]) {
				continue
			}
			field := ProfileField{Label: trimLabel(row[i])}
			if i+1 < len(row) && !isLabel(row[i+1]) {
				field.Value = row[i+1]
				i++
			}
			fields = append(fields, field)
		}
	}
	return fields
}

// sectionEntries drops the column header of a section and its blank rows.
func sectionEntries(rows []ProfileRow) []ProfileRow {
	entries := []ProfileRow{}
	for i, row := range rows {
		if i == 0 || strings.Join(row, "") == "" {
			continue
		}
		entries = append(entries, row)
	}
	return entries
}
