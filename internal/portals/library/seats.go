package library

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"

	"csuassist/internal/sso"
	"csuassist/pkg/htmlutil"
	"csuassist/pkg/jsonutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	seatHomePath    = "home/web/f_second"
	seatAreaPath    = "home/web/seat/area/"
	seatAreaApiPath = "api.php/v3areas/"
)

type SeatFloor struct {
	Id          int64
	Name        string
	Total       int64
	Unavailable int64
	Remaining   int64
	SeatUrl     string
}

type SeatCampus struct {
	Name      string
	AreaId    string
	Remaining int64
	Total     int64
	SeatApi   string
	Floors    []SeatFloor
	// FloorsError is set when the floor breakdown of this campus could not
	// be fetched, Floors is then empty.
	FloorsError string
}

type SeatOverview struct {
	Campuses []SeatCampus
}

var (
	quotaRegex  = regexp.MustCompile(`今日剩余\s*(\d+)[^0-9]+总量\s*(\d+)`)
	areaIdRegex = regexp.MustCompile(`area/(\d+)`)
)

// Seats reads the seat overview of every campus and then fetches the floor
// breakdown of each campus concurrently. A campus whose breakdown fails keeps
// its overview numbers with no floors.
func (c Client) Seats(ctx context.Context) (SeatOverview, error) {
	c.tel.ReportDebug("get seats")

	res, err := c.session.Get(ctx, resolve(c.seats, seatHomePath), nil)
	if err != nil {
		err = fmt.Errorf("fetch overview: %w", err)
		c.tel.ReportBroken(report_client_seats, err)
		return SeatOverview{}, err
	}
	overview, err := c.parseSeatOverview(res.Body)
	if err != nil {
		c.tel.ReportBroken(report_client_seats, err)
		return SeatOverview{}, err
	}

	wg := sync.WaitGroup{}
	for i := range overview.Campuses {
		campus := &overview.Campuses[i]
		wg.Add(1)
		go func() {
			defer wg.Done()

			floors, err := c.seatFloors(ctx, campus.AreaId, campus.SeatApi)
			if err != nil {
				c.tel.ReportWarning(report_client_seats, fmt.Errorf("floors of %s: %w", campus.Name, err))
				campus.FloorsError = err.Error()
				return
			}
			campus.Floors = floors
		}()
	}
	wg.Wait()

	c.tel.ReportCount(report_client_seats, int64(len(overview.Campuses)))
	return overview, nil
}

func (c Client) parseSeatOverview(body []byte) (SeatOverview, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return SeatOverview{}, err
	}

	overview := SeatOverview{Campuses: []SeatCampus{}}
	doc.Find(".xiaoqu .rooms").Each(func(_ int, room *goquery.Selection) {
		labels := room.Find(".zh b")
		name := htmlutil.Text(labels.First())

		var remaining, total int64
		groups := quotaRegex.FindStringSubmatch(htmlutil.Text(labels.Eq(1)))
		if len(groups) >= 3 {
			remaining, _ = strconv.ParseInt(groups[1], 10, 64)
			total, _ = strconv.ParseInt(groups[2], 10, 64)
		}

		var areaId string
		href := room.Find(".seat a").AttrOr("href", "")
		if groups := areaIdRegex.FindStringSubmatch(href); len(groups) >= 2 {
			areaId = groups[1]
		}
		if name == "" || areaId == "" {
			return
		}

		overview.Campuses = append(overview.Campuses, SeatCampus{
			Name:      name,
			AreaId:    areaId,
			Remaining: remaining,
			Total:     total,
			SeatApi:   resolve(c.seats, seatAreaApiPath+areaId),
			Floors:    []SeatFloor{},
		})
	})
	return overview, nil
}

type rawSeatArea struct {
	Data struct {
		List struct {
			ChildArea []struct {
				Id               jsonutil.Number `json:"id"`
				Name             jsonutil.Text   `json:"name"`
				TotalCount       jsonutil.Number `json:"TotalCount"`
				UnavailableSpace jsonutil.Number `json:"UnavailableSpace"`
			} `json:"childArea"`
		} `json:"list"`
	} `json:"data"`
}

// seatFloors loads the seat page of the area first, the area API only
// answers with the cookie that page sets.
func (c Client) seatFloors(ctx context.Context, areaId, api string) ([]SeatFloor, error) {
	seatPage := resolve(c.seats, seatAreaPath+areaId)
	_, err := c.session.Get(ctx, seatPage, nil)
	if err != nil {
		return nil, fmt.Errorf("seat page: %w", err)
	}

	res, err := c.session.Do(ctx, sso.Request{
		Method: http.MethodGet,
		Url:    api,
		Header: map[string]string{
			"accept":           "application/json, text/javascript, */*; q=0.01",
			"referer":          seatPage,
			"x-requested-with": "XMLHttpRequest",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("area api: %w", err)
	}
	return c.parseSeatFloors(res.Body)
}

func (c Client) parseSeatFloors(body []byte) ([]SeatFloor, error) {
	var raw rawSeatArea
	err := json.Unmarshal(body, &raw)
	if err != nil {
		return nil, fmt.Errorf("decode area: %w", err)
	}

	floors := make([]SeatFloor, len(raw.Data.List.ChildArea))
	for i, f := range raw.Data.List.ChildArea {
		id := f.Id.Int()
		total := f.TotalCount.Int()
		unavailable := f.UnavailableSpace.Int()
		floors[i] = SeatFloor{
			Id:          id,
			Name:        f.Name.String(),
			Total:       total,
			Unavailable: unavailable,
			Remaining:   max(0, total-unavailable),
			SeatUrl:     resolve(c.seats, seatAreaPath+strconv.FormatInt(id, 10)),
		}
	}
	return floors, nil
}
