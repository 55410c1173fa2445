// Package ecard reads the campus card platform (一卡通). Its API
// authenticates with the token the CAS login hands over on the landing url.
package ecard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"csuassist/internal/components/assert"
	"csuassist/internal/components/telemetry"
	"csuassist/internal/failure"
	"csuassist/internal/sso"
)

const DefaultBaseUrl = "https://ecard.csu.edu.cn/"

const (
	report_client_card     = "client.card"
	report_client_turnover = "client.turnover"
)

const (
	cardPath     = "berserker-app/ykt/tsm/queryCard"
	turnoverPath = "berserker-search/search/personal/turnover"
	refererPath  = "plat-pc/"
)

type Client struct {
	session *sso.Session
	token   string
	base    *url.URL
	tel     telemetry.API
}

// NewClient creates a client from a completed ecard login, an empty baseUrl
// means DefaultBaseUrl. A missing token is reported but not fatal, the
// platform rejects the calls made without it.
func NewClient(auth sso.Authenticated, baseUrl string, tel telemetry.API) (Client, error) {
	assert.NotNil(auth.Session, "session")
	assert.NotNil(tel, "tel")

	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	base, err := url.Parse(baseUrl)
	if err != nil {
		return Client{}, err
	}

	tel = telemetry.NewScopedAPI("ecard", tel)
	if auth.Token == "" {
		tel.ReportWarning("client.token", fmt.Errorf("login landed without a token"))
	}
	return Client{
		session: auth.Session,
		token:   auth.Token,
		base:    base,
		tel:     tel,
	}, nil
}

func (c Client) endpoint(path string) string {
	return c.base.ResolveReference(&url.URL{Path: path}).String()
}

// headers carries the token in both headers the platform reads it from,
// formatted with `prefix`.
func (c Client) headers(prefix string) map[string]string {
	header := map[string]string{
		"referer": c.endpoint(refererPath),
	}
	if c.token != "" {
		header["synjones-auth"] = prefix + c.token
		header["authorization"] = prefix + c.token
	}
	return header
}

func (c Client) getJson(ctx context.Context, operation, endpoint string, query url.Values, prefix string, out any) error {
	res, err := c.session.Do(ctx, sso.Request{
		Method: http.MethodGet,
		Url:    endpoint,
		Query:  query,
		Header: c.headers(prefix),
	})
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	err = json.Unmarshal(res.Body, out)
	if err != nil {
		return fmt.Errorf("%w: %w", &failure.PageMarkerMissing{Operation: operation, Marker: "json envelope"}, err)
	}
	return nil
}
