package jwc

import (
	"context"
	"fmt"
	"net/url"

	"csuassist/internal/failure"
	"csuassist/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type Rank struct {
	Term       string
	TotalScore string
	ClassRank  string
	AverScore  string
}

// Rank reads the term options from the ranking page and then queries every
// term in order, one failed request fails the whole call.
func (c Client) Rank(ctx context.Context) ([]Rank, error) {
	c.tel.ReportDebug("get rank")

	res, err := c.session.Get(ctx, c.endpoint(rankPath), nil)
	if err != nil {
		return nil, c.fail(report_client_rank, fmt.Errorf("fetch terms: %w", err))
	}
	terms, err := ParseRankTerms(res.Body)
	if err != nil {
		return nil, c.fail(report_client_rank, err)
	}

	empty := failure.NewEmptyFields("rank")
	ranks := make([]Rank, 0, len(terms))
	for _, term := range terms {
		res, err := c.session.PostForm(ctx, c.endpoint(rankPath), url.Values{
			"xqfw": {term},
		})
		if err != nil {
			return nil, c.fail(report_client_rank, fmt.Errorf("fetch term %s: %w", term, err))
		}
		rank, err := parseRank(term, res.Body, empty)
		if err != nil {
			return nil, c.fail(report_client_rank, err)
		}
		ranks = append(ranks, rank)
	}

	c.reportEmpty(report_client_rank, empty)
	c.tel.ReportCount(report_client_rank, int64(len(ranks)))
	return ranks, nil
}

// ParseRankTerms returns the term options of the ranking page in page order.
func ParseRankTerms(body []byte) ([]string, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	selector := doc.Find("#xqfw")
	if selector.Length() == 0 {
		return nil, &failure.PageMarkerMissing{Operation: "rank", Marker: "#xqfw"}
	}

	terms := []string{}
	selector.Find("option").Each(func(_ int, option *goquery.Selection) {
		terms = append(terms, htmlutil.Text(option))
	})
	return terms, nil
}

// ParseRank reads the aggregate row of one term's ranking page.
func ParseRank(term string, body []byte) (Rank, error) {
	return parseRank(term, body, nil)
}

func parseRank(term string, body []byte, empty *failure.EmptyFields) (Rank, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return Rank{}, err
	}
	table := doc.Find("#dataList")
	if table.Length() == 0 {
		return Rank{}, &failure.PageMarkerMissing{Operation: "rank", Marker: "#dataList"}
	}

	cells := htmlutil.CellTexts(table.Find("tr").Eq(1).Find("td"))
	return Rank{
		Term:       term,
		TotalScore: empty.Check(1, "TotalScore", htmlutil.At(cells, 1)),
		ClassRank:  empty.Check(1, "ClassRank", htmlutil.At(cells, 2)),
		AverScore:  empty.Check(1, "AverScore", htmlutil.At(cells, 3)),
	}, nil
}
