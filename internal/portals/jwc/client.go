// Package jwc scrapes the academic affairs system (教务系统). Every method
// expects a session that completed the jwc CAS login.
package jwc

import (
	"bytes"
	"fmt"
	"net/url"

	"csuassist/internal/components/assert"
	"csuassist/internal/components/telemetry"
	"csuassist/internal/failure"
	"csuassist/internal/sso"

	"github.com/PuerkitoBio/goquery"
)

const DefaultBaseUrl = "http://csujwc.its.csu.edu.cn/jsxsd/"

const (
	report_client_grades       = "client.grades"
	report_client_rank         = "client.rank"
	report_client_schedule     = "client.schedule"
	report_client_level_exams  = "client.level-exams"
	report_client_profile      = "client.profile"
	report_client_minor        = "client.minor"
	report_client_student_plan = "client.student-plan"
)

const (
	gradesPath       = "kscj/yscjcx_list"
	rankPath         = "kscj/zybm_cx"
	schedulePath     = "xskb/xskb_list.do"
	levelExamsPath   = "kscj/djkscj_list"
	profilePath      = "grxx/xsxx"
	minorRegPath     = "fxgl/fxbm_list"
	minorPaymentPath = "fxgl/fxjf_list"
	studentPlanPath  = "pyfa/pyfazd_query"
)

type Client struct {
	session *sso.Session
	base    *url.URL
	tel     telemetry.API
}

// NewClient creates a client on top of an authenticated session, an empty
// baseUrl means DefaultBaseUrl.
func NewClient(session *sso.Session, baseUrl string, tel telemetry.API) (Client, error) {
	assert.NotNil(session, "session")
	assert.NotNil(tel, "tel")

	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	base, err := url.Parse(baseUrl)
	if err != nil {
		return Client{}, err
	}
	return Client{
		session: session,
		base:    base,
		tel:     telemetry.NewScopedAPI("jwc", tel),
	}, nil
}

func (c Client) endpoint(path string) string {
	return c.base.ResolveReference(&url.URL{Path: path}).String()
}

func (c Client) reportEmpty(id string, empty *failure.EmptyFields) {
	for _, field := range empty.Fields {
		c.tel.ReportWarning(id, field)
	}
}

func (c Client) fail(id string, err error) error {
	c.tel.ReportBroken(id, err)
	return err
}

func parseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// dataRows returns the rows of `table#dataList` that hold at least one td.
func dataRows(doc *goquery.Document) *goquery.Selection {
	return doc.Find("table#dataList tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Find("td").Length() > 0
	})
}
