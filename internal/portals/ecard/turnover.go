package ecard

import (
	"context"
	"encoding/json"
	"math"
	"net/url"
	"strconv"

	"csuassist/internal/failure"
	"csuassist/pkg/jsonutil"
)

const (
	defaultTurnoverSize    = 100
	defaultTurnoverCurrent = 1
)

// TurnoverQuery filters the transaction history. Times are passed through
// as the platform expects them (ex. "2024-09-01"), amounts are in yuan.
type TurnoverQuery struct {
	TimeFrom   string
	TimeTo     string
	AmountFrom *float64
	AmountTo   *float64
	// Size and Current page the result, zero means 100 and 1.
	Size    int
	Current int
}

func yuanToCents(v float64) string {
	return strconv.FormatInt(int64(math.Round(v*100)), 10)
}

// Values encodes the query string of a turnover request.
func (q TurnoverQuery) Values() url.Values {
	values := url.Values{}
	if q.TimeFrom != "" {
		values.Set("timeFrom", q.TimeFrom)
	}
	if q.TimeTo != "" {
		values.Set("timeTo", q.TimeTo)
	}
	if q.AmountFrom != nil {
		values.Set("amountFrom", yuanToCents(*q.AmountFrom))
	}
	if q.AmountTo != nil {
		values.Set("amountTo", yuanToCents(*q.AmountTo))
	}

	size := q.Size
	if size <= 0 {
		size = defaultTurnoverSize
	}
	current := q.Current
	if current <= 0 {
		current = defaultTurnoverCurrent
	}
	values.Set("size", strconv.Itoa(size))
	values.Set("current", strconv.Itoa(current))
	values.Set("synAccessSource", "pc")
	return values
}

type Turnover struct {
	FromAccount   string
	JnDatetime    string
	EffectDate    string
	EffectDateStr string
	JnDatetimeStr string
	Resume        string
	TurnoverType  string
	PayName       string
	PayIcon       string
	// Amount is in yuan.
	Amount     float64
	Remark     string
	UserName   string
	ToMerchant string
	Sno        string
}

type TurnoverPage struct {
	Code    string
	Success bool
	Total   int
	Size    int
	Current int
	Pages   int
	Records []Turnover
}

type rawTurnoverEnvelope struct {
	Code    jsonutil.Text `json:"code"`
	Success bool          `json:"success"`
	Data    struct {
		Total   *int `json:"total"`
		Size    int  `json:"size"`
		Current int  `json:"current"`
		Pages   int  `json:"pages"`
		Records []struct {
			FromAccount   jsonutil.Text `json:"fromAccount"`
			JnDatetime    jsonutil.Text `json:"jndatetime"`
			EffectDate    jsonutil.Text `json:"effectdate"`
			EffectDateStr jsonutil.Text `json:"effectdateStr"`
			JnDatetimeStr jsonutil.Text `json:"jndatetimeStr"`
			Resume        jsonutil.Text `json:"resume"`
			TurnoverType  jsonutil.Text `json:"turnoverType"`
			PayName       jsonutil.Text `json:"payName"`
			PayIcon       jsonutil.Text `json:"payIcon"`
			Tranamt       amount        `json:"tranamt"`
			Remark        jsonutil.Text `json:"remark"`
			UserName      jsonutil.Text `json:"userName"`
			ToMerchant    jsonutil.Text `json:"toMerchant"`
			Sno           jsonutil.Text `json:"sno"`
		} `json:"records"`
	} `json:"data"`
}

// Turnover fetches one page of the transaction history.
func (c Client) Turnover(ctx context.Context, query TurnoverQuery) (TurnoverPage, error) {
	c.tel.ReportDebug("get turnover", query.TimeFrom, query.TimeTo)

	var envelope rawTurnoverEnvelope
	err := c.getJson(
		ctx,
		"card-turnover",
		c.endpoint(turnoverPath),
		query.Values(),
		"bearer ",
		&envelope,
	)
	if err != nil {
		c.tel.ReportBroken(report_client_turnover, err)
		return TurnoverPage{}, err
	}

	page := envelope.page()
	c.tel.ReportCount(report_client_turnover, int64(len(page.Records)))
	return page, nil
}

// ParseTurnover decodes a turnover response.
func ParseTurnover(body []byte) (TurnoverPage, error) {
	var envelope rawTurnoverEnvelope
	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return TurnoverPage{}, &failure.PageMarkerMissing{Operation: "card-turnover", Marker: "json envelope"}
	}
	return envelope.page(), nil
}

func (e rawTurnoverEnvelope) page() TurnoverPage {
	records := make([]Turnover, len(e.Data.Records))
	for i, r := range e.Data.Records {
		records[i] = Turnover{
			FromAccount:   string(r.FromAccount),
			JnDatetime:    string(r.JnDatetime),
			EffectDate:    string(r.EffectDate),
			EffectDateStr: string(r.EffectDateStr),
			JnDatetimeStr: string(r.JnDatetimeStr),
			Resume:        string(r.Resume),
			TurnoverType:  string(r.TurnoverType),
			PayName:       string(r.PayName),
			PayIcon:       string(r.PayIcon),
			Amount:        float64(r.Tranamt),
			Remark:        string(r.Remark),
			UserName:      string(r.UserName),
			ToMerchant:    string(r.ToMerchant),
			Sno:           string(r.Sno),
		}
	}

	total := len(records)
	if e.Data.Total != nil {
		total = *e.Data.Total
	}
	return TurnoverPage{
		Code:    string(e.Code),
		Success: e.Success,
		Total:   total,
		Size:    e.Data.Size,
		Current: e.Data.Current,
		Pages:   e.Data.Pages,
		Records: records,
	}
}
