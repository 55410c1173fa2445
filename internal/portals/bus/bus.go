// Package bus searches the campus shuttle timetable, the service needs no
// login.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"csuassist/internal/components/assert"
	"csuassist/internal/components/chrono"
	"csuassist/internal/components/telemetry"
	"csuassist/internal/failure"
	"csuassist/internal/sso"
	"csuassist/pkg/jsonutil"
)

const DefaultBaseUrl = "https://wxxy.csu.edu.cn/regularbus/wap/default/"

const report_client_search = "client.search"

const (
	searchPath = "index-ajax"
	detailPath = "info"
	// busLine is the line id the timetable search expects for the
	// inter-campus shuttle.
	busLine = "2"
)

var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102"}

// Query filters departures by date, route and a departure time window, the
// times are "HH:MM".
type Query struct {
	Date           string
	StartStation   string
	EndStation     string
	StartTimeLeft  string
	StartTimeRight string
}

type Departure struct {
	StartTime string
	Stations  []string
	// DetailUrl links the departure's page, it is empty unless the entry
	// carried an id and the query date could be read.
	DetailUrl string
}

type Client struct {
	session *sso.Session
	base    *url.URL
	tel     telemetry.API
}

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
		tel:     telemetry.NewScopedAPI("bus", tel),
	}, nil
}

func (c Client) endpoint(path string) string {
	return c.base.ResolveReference(&url.URL{Path: path}).String()
}

func (c Client) Search(ctx context.Context, q Query) ([]Departure, error) {
	c.tel.ReportDebug("search bus", q.Date, q.StartStation, q.EndStation)

	res, err := c.session.PostForm(ctx, c.endpoint(searchPath), url.Values{
		"bus_id":    {busLine},
		"date":      {q.Date},
		"cfz":       {q.StartStation},
		"ddz":       {q.EndStation},
		"fcsjStart": {q.StartTimeLeft},
		"fcsjEnd":   {q.StartTimeRight},
	})
	if err != nil {
		err = fmt.Errorf("fetch: %w", err)
		c.tel.ReportBroken(report_client_search, err)
		return nil, err
	}

	departures, err := ParseDepartures(c.endpoint(detailPath), q.Date, res.Body)
	if err != nil {
		c.tel.ReportBroken(report_client_search, err)
		return nil, err
	}
	c.tel.ReportCount(report_client_search, int64(len(departures)))
	return departures, nil
}

type rawResponse struct {
	D struct {
		Data []struct {
			Id      jsonutil.Text    `json:"id"`
			Start   jsonutil.Text    `json:"start"`
			Station jsonutil.Strings `json:"station"`
		} `json:"data"`
	} `json:"d"`
}

// formatDate normalizes a query date to YYYY-MM-DD, ok is false when it
// cannot be read.
func formatDate(date string) (string, bool) {
	date = strings.TrimSpace(date)
	for _, layout := range dateLayouts {
		parsed, err := chrono.ParseDate(layout, date)
		if err == nil {
			return parsed.Format("2006-01-02"), true
		}
	}
	return "", false
}

// ParseDepartures maps a search response to departures, detail links are
// built on detailUrl.
func ParseDepartures(detailUrl, date string, body []byte) ([]Departure, error) {
	var raw rawResponse
	err := json.Unmarshal(body, &raw)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: %w",
			&failure.PageMarkerMissing{Operation: "bus", Marker: "json envelope"},
			err,
		)
	}

	formatted, dateOk := formatDate(date)
	departures := make([]Departure, len(raw.D.Data))
	for i, entry := range raw.D.Data {
		stations := []string(entry.Station)
		if stations == nil {
			stations = []string{}
		}
		departure := Departure{
			StartTime: entry.Start.String(),
			Stations:  stations,
		}
		if entry.Id != "" && dateOk {
			departure.DetailUrl = detailUrl + "?" + url.Values{
				"id":   {entry.Id.String()},
				"date": {formatted},
			}.Encode()
		}
		departures[i] = departure
	}
	return departures, nil
}
