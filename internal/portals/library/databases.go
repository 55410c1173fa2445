package library

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"csuassist/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const databaseSearchPath = "accessData"

type DatabaseEntry struct {
	Index     string
	Name      string
	DetailUrl string
	// AccessId is the id the "enter" button of the entry opens.
	AccessId string
}

// DBSearchResult splits the matched e-resource databases into the Chinese
// and the foreign list.
type DBSearchResult struct {
	Chinese []DatabaseEntry
	Foreign []DatabaseEntry
}

var accessIdRegex = regexp.MustCompile(`jinru\('[^']*','([^']+)'`)

// SearchDatabases looks up e-resource databases by name.
func (c Client) SearchDatabases(ctx context.Context, name string) (DBSearchResult, error) {
	c.tel.ReportDebug("search databases", name)

	res, err := c.session.PostForm(ctx, resolve(c.database, databaseSearchPath), url.Values{
		"elecName":    {name},
		"typeZm":      {""},
		"sortType":    {"-1"},
		"elecMuTypes": {""},
		"category":    {""},
		"language":    {""},
		"subject":     {""},
	})
	if err != nil {
		err = fmt.Errorf("fetch: %w", err)
		c.tel.ReportBroken(report_client_databases, err, name)
		return DBSearchResult{}, err
	}

	result, err := ParseDatabases(c.database, res.Body)
	if err != nil {
		c.tel.ReportBroken(report_client_databases, err, name)
		return DBSearchResult{}, err
	}
	c.tel.ReportCount(report_client_databases, int64(len(result.Chinese)+len(result.Foreign)))
	return result, nil
}

// ParseDatabases reads both lists of a database search page, detail links
// are resolved against base.
func ParseDatabases(base *url.URL, body []byte) (DBSearchResult, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return DBSearchResult{}, err
	}
	lists := doc.Find(".lib-data-list")
	return DBSearchResult{
		Chinese: parseDatabaseList(base, lists.Eq(0)),
		Foreign: parseDatabaseList(base, lists.Eq(1)),
	}, nil
}

func parseDatabaseList(base *url.URL, list *goquery.Selection) []DatabaseEntry {
	entries := []DatabaseEntry{}
	list.Find(".lib-data-body .row").Each(func(_ int, row *goquery.Selection) {
		anchor := row.Find("a[title]").First()
		name := htmlutil.Text(anchor)
		if name == "" {
			return
		}
		href := strings.TrimSpace(anchor.AttrOr("href", ""))

		var accessId string
		access, ok := row.Find("a[href^='javascript:jinru']").Attr("href")
		if ok {
			groups := accessIdRegex.FindStringSubmatch(access)
			if len(groups) >= 2 {
				accessId = groups[1]
			}
		} else if idx := strings.LastIndex(href, "id="); idx >= 0 {
			accessId = href[idx+len("id="):]
		}

		index := htmlutil.Text(row.Find(".num"))
		if index == "" {
			index = strconv.Itoa(len(entries) + 1)
		}
		entries = append(entries, DatabaseEntry{
			Index:     index,
			Name:      name,
			DetailUrl: htmlutil.Resolve(base, href),
			AccessId:  accessId,
		})
	})
	return entries
}
