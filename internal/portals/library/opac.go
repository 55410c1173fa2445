package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"csuassist/internal/failure"
	"csuassist/internal/sso"
	"csuassist/pkg/jsonutil"
)

const (
	unifySearchPath = "find/unify/search"
	groupItemsPath  = "find/physical/groupitems"

	// opacGroupCode selects the university's tenant on the shared catalog.
	opacGroupCode = "800388"
	pageRows      = 10
)

type Book struct {
	RecordId      int64
	Title         string
	Author        string
	Publisher     string
	ISBNs         []string
	PublishYear   string
	CallNo        []string
	DocName       string
	PhysicalCount int64
	OnShelfCount  int64
	Language      string
	Country       string
	Subjects      string
	Abstract      string
	Picture       string
}

type BookSearchResult struct {
	Total int64
	Items []Book
}

type BookCopy struct {
	ItemId          int64
	CallNo          string
	Barcode         string
	LibCode         string
	LibName         string
	LocationId      int64
	LocationName    string
	CurLocationId   int64
	CurLocationName string
	Vol             string
	InDate          string
	ProcessType     string
	ItemPolicyName  string
	ShelfNo         string
}

type CopiesResult struct {
	Total int64
	Items []BookCopy
}

// opacEnvelope wraps every catalog response. Data only has a known shape
// when Success is true, a failed envelope may carry anything there.
type opacEnvelope struct {
	Success bool            `json:"success"`
	Message jsonutil.Text   `json:"message"`
	ErrCode jsonutil.Text   `json:"errCode"`
	Data    json.RawMessage `json:"data"`
}

func (c Client) opacHeaders() map[string]string {
	origin := strings.TrimSuffix(c.opac.String(), "/")
	return map[string]string{
		"accept":         "application/json, text/plain, */*",
		"origin":         origin,
		"referer":        origin + "/",
		"x-lang":         "CHI",
		"groupcode":      opacGroupCode,
		"sec-fetch-mode": "cors",
		"sec-fetch-site": "same-origin",
	}
}

// postOpac posts payload to the catalog API. ok is false when the envelope
// itself reports a failure, which callers treat as an empty result.
func postOpac[T any](ctx context.Context, c Client, operation, path string, payload any) (data T, ok bool, err error) {
	res, err := c.session.Do(ctx, sso.Request{
		Method: http.MethodPost,
		Url:    resolve(c.opac, path),
		Json:   payload,
		Header: c.opacHeaders(),
	})
	if err != nil {
		return data, false, fmt.Errorf("fetch: %w", err)
	}
	return decodeOpac[T](operation, res.Body)
}

func decodeOpac[T any](operation string, body []byte) (data T, ok bool, err error) {
	var envelope opacEnvelope
	err = json.Unmarshal(body, &envelope)
	if err != nil {
		return data, false, opacMarkerMissing(operation, "json envelope", err)
	}
	if !envelope.Success {
		return data, false, nil
	}
	if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
		return data, true, nil
	}
	err = json.Unmarshal(envelope.Data, &data)
	if err != nil {
		return data, false, opacMarkerMissing(operation, "json data", err)
	}
	return data, true, nil
}

func opacMarkerMissing(operation, marker string, err error) error {
	return fmt.Errorf(
		"%w: %w",
		&failure.PageMarkerMissing{Operation: operation, Marker: marker},
		err,
	)
}

type rawBookSearch struct {
	NumFound     *jsonutil.Number `json:"numFound"`
	SearchResult []struct {
		RecordId      jsonutil.Number  `json:"recordId"`
		Title         jsonutil.Text    `json:"title"`
		Author        jsonutil.Text    `json:"author"`
		Publisher     jsonutil.Text    `json:"publisher"`
		Isbns         jsonutil.Strings `json:"isbns"`
		PublishYear   jsonutil.Text    `json:"publishYear"`
		CallNo        jsonutil.Strings `json:"callNo"`
		DocName       jsonutil.Text    `json:"docName"`
		PhysicalCount jsonutil.Number  `json:"physicalCount"`
		OnShelfCountI jsonutil.Number  `json:"onShelfCountI"`
		LangCode      jsonutil.Text    `json:"langCode"`
		CountryCode   jsonutil.Text    `json:"countryCode"`
		SubjectWord   jsonutil.Text    `json:"subjectWord"`
		Adstract      jsonutil.Text    `json:"adstract"`
		DdAbstract    jsonutil.Text    `json:"ddAbstract"`
		Pic           jsonutil.Text    `json:"pic"`
	} `json:"searchResult"`
}

func (r rawBookSearch) result() BookSearchResult {
	items := make([]Book, len(r.SearchResult))
	for i, row := range r.SearchResult {
		items[i] = Book{
			RecordId:      row.RecordId.Int(),
			Title:         row.Title.String(),
			Author:        row.Author.String(),
			Publisher:     row.Publisher.String(),
			ISBNs:         nonNil(row.Isbns),
			PublishYear:   row.PublishYear.String(),
			CallNo:        nonNil(row.CallNo),
			DocName:       row.DocName.String(),
			PhysicalCount: row.PhysicalCount.Int(),
			OnShelfCount:  row.OnShelfCountI.Int(),
			Language:      row.LangCode.String(),
			Country:       row.CountryCode.String(),
			Subjects:      row.SubjectWord.String(),
			Abstract:      jsonutil.FirstText(row.Adstract, row.DdAbstract),
			Picture:       row.Pic.String(),
		}
	}
	total := int64(len(items))
	if r.NumFound != nil {
		total = r.NumFound.Int()
	}
	return BookSearchResult{Total: total, Items: items}
}

func nonNil(values jsonutil.Strings) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func bookSearchPayload(keyword string) map[string]any {
	empty := []string{}
	return map[string]any{
		"docCode":            []any{nil},
		"searchFieldContent": keyword,
		"searchField":        "keyWord",
		"matchMode":          "2",
		"resourceType":       empty,
		"subject":            empty,
		"discode1":           empty,
		"publisher":          empty,
		"libCode":            empty,
		"locationId":         empty,
		"eCollectionIds":     empty,
		"neweCollectionIds":  empty,
		"curLocationId":      empty,
		"campusId":           empty,
		"kindNo":             empty,
		"collectionName":     empty,
		"author":             empty,
		"langCode":           empty,
		"countryCode":        empty,
		"publishBegin":       nil,
		"publishEnd":         nil,
		"coreInclude":        empty,
		"ddType":             empty,
		"verifyStatus":       empty,
		"group":              empty,
		"sortField":          "relevance",
		"sortClause":         "asc",
		"page":               1,
		"rows":               pageRows,
		"onlyOnShelf":        nil,
		"searchItems":        nil,
		"newCoreInclude":     empty,
		"customSub":          empty,
		"customSub0":         empty,
		"indexSearch":        1,
	}
}

// SearchBooks runs a keyword search on the catalog and returns the first
// page of hits.
func (c Client) SearchBooks(ctx context.Context, keyword string) (BookSearchResult, error) {
	c.tel.ReportDebug("search books", keyword)

	raw, ok, err := postOpac[rawBookSearch](ctx, c, "book-search", unifySearchPath, bookSearchPayload(keyword))
	if err != nil {
		c.tel.ReportBroken(report_client_book_search, err, keyword)
		return BookSearchResult{}, err
	}
	if !ok {
		c.tel.ReportWarning(report_client_book_search, fmt.Errorf("envelope reported failure"), keyword)
		return BookSearchResult{Items: []Book{}}, nil
	}

	result := raw.result()
	c.tel.ReportCount(report_client_book_search, int64(len(result.Items)))
	return result, nil
}

// ParseBookSearch decodes a catalog search response, an envelope that
// reports failure yields an empty result.
func ParseBookSearch(body []byte) (BookSearchResult, error) {
	raw, ok, err := decodeOpac[rawBookSearch]("book-search", body)
	if err != nil {
		return BookSearchResult{}, err
	}
	if !ok {
		return BookSearchResult{Items: []Book{}}, nil
	}
	return raw.result(), nil
}

type rawCopies struct {
	TotalCount *jsonutil.Number `json:"totalCount"`
	List       []struct {
		ItemId          jsonutil.Number `json:"itemId"`
		CallNo          jsonutil.Text   `json:"callNo"`
		Barcode         jsonutil.Text   `json:"barcode"`
		LibCode         jsonutil.Text   `json:"libCode"`
		LibName         jsonutil.Text   `json:"libName"`
		LocationId      jsonutil.Number `json:"locationId"`
		LocationName    jsonutil.Text   `json:"locationName"`
		CurLocationId   jsonutil.Number `json:"curLocationId"`
		CurLocationName jsonutil.Text   `json:"curLocationName"`
		Vol             jsonutil.Text   `json:"vol"`
		InDate          jsonutil.Text   `json:"inDate"`
		ProcessType     jsonutil.Text   `json:"processType"`
		ItemPolicyName  jsonutil.Text   `json:"itemPolicyName"`
		ShelfNo         jsonutil.Text   `json:"shelfNo"`
	} `json:"list"`
}

func (r rawCopies) result() CopiesResult {
	items := make([]BookCopy, len(r.List))
	for i, row := range r.List {
		items[i] = BookCopy{
			ItemId:          row.ItemId.Int(),
			CallNo:          row.CallNo.String(),
			Barcode:         row.Barcode.String(),
			LibCode:         row.LibCode.String(),
			LibName:         row.LibName.String(),
			LocationId:      row.LocationId.Int(),
			LocationName:    row.LocationName.String(),
			CurLocationId:   row.CurLocationId.Int(),
			CurLocationName: row.CurLocationName.String(),
			Vol:             row.Vol.String(),
			InDate:          row.InDate.String(),
			ProcessType:     row.ProcessType.String(),
			ItemPolicyName:  row.ItemPolicyName.String(),
			ShelfNo:         row.ShelfNo.String(),
		}
	}
	total := int64(len(items))
	if r.TotalCount != nil {
		total = r.TotalCount.Int()
	}
	return CopiesResult{Total: total, Items: items}
}

// BookCopies lists the physical copies of a catalog record.
func (c Client) BookCopies(ctx context.Context, recordId string) (CopiesResult, error) {
	c.tel.ReportDebug("book copies", recordId)

	payload := map[string]any{
		"page":     1,
		"rows":     pageRows,
		"entrance": nil,
		"recordId": recordId,
		"isUnify":  true,
		"sortType": 0,
	}
	raw, ok, err := postOpac[rawCopies](ctx, c, "book-copies", groupItemsPath, payload)
	if err != nil {
		c.tel.ReportBroken(report_client_book_copies, err, recordId)
		return CopiesResult{}, err
	}
	if !ok {
		c.tel.ReportWarning(report_client_book_copies, fmt.Errorf("envelope reported failure"), recordId)
		return CopiesResult{Items: []BookCopy{}}, nil
	}

	result := raw.result()
	c.tel.ReportCount(report_client_book_copies, int64(len(result.Items)))
	return result, nil
}

func ParseBookCopies(body []byte) (CopiesResult, error) {
	raw, ok, err := decodeOpac[rawCopies]("book-copies", body)
	if err != nil {
		return CopiesResult{}, err
	}
	if !ok {
		return CopiesResult{Items: []BookCopy{}}, nil
	}
	return raw.result(), nil
}
