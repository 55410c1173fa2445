package sso

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"csuassist/internal/components/assert"
	"csuassist/internal/components/telemetry"
	"csuassist/internal/failure"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Options configures the HTTP behavior shared by every session.
type Options struct {
	CasLoginUrl      string
	UserAgent        string
	Timeout          time.Duration
	CloudflareBypass bool

	// Output receives a dump of every exchanged message when it is not nil.
	Output telemetry.InstrumentOutput
}

func (o Options) withDefaults() Options {
	if o.CasLoginUrl == "" {
		o.CasLoginUrl = DefaultCasLoginUrl
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Timeout == 0 {
		o.Timeout = time.Second * 30
	}
	return o
}

// Session is an HTTP capability bound to exactly one cookie jar. Every
// request made through it sends and stores cookies in that jar.
//
// A session belongs to the operation that created it, it may be used for
// several requests in sequence but must never be shared with another login.
type Session struct {
	id     string
	jar    *cookiejar.Jar
	follow *resty.Client
	manual *resty.Client
	tel    telemetry.API
}

func NewSession(opts Options, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel, "tel")
	opts = opts.withDefaults()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:  uuid.NewString(),
		jar: jar,
		tel: tel,
	}
	s.follow = s.newClient(opts, resty.FlexibleRedirectPolicy(20), "follow")
	s.manual = s.newClient(
		opts,
		resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}),
		"manual",
	)
	return s, nil
}

func (s *Session) newClient(opts Options, policy resty.RedirectPolicy, name string) *resty.Client {
	client := resty.New()
	client.SetCookieJar(s.jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetRedirectPolicy(policy)
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, s.tel, fmt.Sprintf("%s-%s", s.id[:8], name), opts.Output)
	return client
}

// Id identifies the session in reports.
func (s *Session) Id() string {
	return s.id
}

// Cookies returns the cookies the session would send to rawUrl.
func (s *Session) Cookies(rawUrl string) []*http.Cookie {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return nil
	}
	return s.jar.Cookies(u)
}

type Request struct {
	Method string
	Url    string
	Query  url.Values
	Form   url.Values
	// Json is marshalled as the request body when it is not nil.
	Json   any
	Header map[string]string

	// NoFollow returns a redirect response as-is instead of following it.
	NoFollow bool
	// AnyStatus accepts every status code instead of treating non-2xx as a failure.
	AnyStatus bool
}

type Response struct {
	Status int
	// FinalUrl is the url of the last request made, after redirects.
	FinalUrl *url.URL
	Header   http.Header
	Body     []byte
}

// Location resolves the Location header against the url it was received from.
func (r Response) Location() (*url.URL, bool) {
	location := r.Header.Get("Location")
	if location == "" {
		return nil, false
	}
	ref, err := url.Parse(location)
	if err != nil {
		return nil, false
	}
	return r.FinalUrl.ResolveReference(ref), true
}

func (s *Session) Do(ctx context.Context, req Request) (Response, error) {
	client := s.follow
	if req.NoFollow {
		client = s.manual
	}

	r := client.R().SetContext(ctx)
	if req.Query != nil {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Form != nil {
		r.SetFormDataFromValues(req.Form)
	}
	if req.Json != nil {
		r.SetHeader("content-type", "application/json")
		r.SetBody(req.Json)
	}
	for k, v := range req.Header {
		r.SetHeader(k, v)
	}

	res, err := r.Execute(req.Method, req.Url)
	if err != nil {
		return Response{}, &failure.NetworkError{
			Method: req.Method,
			URL:    req.Url,
			Cause:  err,
		}
	}

	finalUrl := res.RawResponse.Request.URL
	out := Response{
		Status:   res.StatusCode(),
		FinalUrl: finalUrl,
		Header:   res.Header(),
		Body:     res.Body(),
	}

	if !req.AnyStatus && !statusAccepted(out.Status, req.NoFollow) {
		return out, &failure.NetworkError{
			Method: req.Method,
			URL:    finalUrl.String(),
			Status: out.Status,
		}
	}
	return out, nil
}

func statusAccepted(status int, noFollow bool) bool {
	if status >= 200 && status < 300 {
		return true
	}
	return noFollow && status >= 300 && status < 400
}

func (s *Session) Get(ctx context.Context, u string, header map[string]string) (Response, error) {
	return s.Do(ctx, Request{Method: http.MethodGet, Url: u, Header: header})
}

func (s *Session) PostForm(ctx context.Context, u string, form url.Values) (Response, error) {
	return s.Do(ctx, Request{Method: http.MethodPost, Url: u, Form: form})
}
