package library

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"csuassist/internal/sso"
)

// RawPage is a library portal response as it was received.
type RawPage struct {
	Status   int
	FinalUrl string
	Body     string
}

// Fetch issues an arbitrary request through the session, it is meant for a
// session that completed the library portal login. Every status code is
// returned as a page, only transport failures are errors.
func (c Client) Fetch(ctx context.Context, method, rawUrl string, form url.Values) (RawPage, error) {
	method = strings.ToUpper(method)
	if method == "" {
		method = http.MethodGet
	}
	c.tel.ReportDebug("fetch", method, rawUrl)

	res, err := c.session.Do(ctx, sso.Request{
		Method:    method,
		Url:       rawUrl,
		Form:      form,
		AnyStatus: true,
	})
	if err != nil {
		err = fmt.Errorf("fetch: %w", err)
		c.tel.ReportBroken(report_client_fetch, err, method, rawUrl)
		return RawPage{}, err
	}
	return RawPage{
		Status:   res.Status,
		FinalUrl: res.FinalUrl.String(),
		Body:     string(res.Body),
	}, nil
}
