package telemetry

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

// redactedHeaders carry session material, only their first few characters
// are dumped.
var redactedHeaders = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	"Synjones-Auth",
}

// redactedFormFields are form fields whose values never reach a dump.
var redactedFormFields = []string{"password", "passwordText"}

func redact(value string) string {
	if len(value) <= 6 {
		return "<redacted>"
	}
	return value[:6] + "...<redacted>"
}

func writeHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		sensitive := slices.Contains(redactedHeaders, http.CanonicalHeaderKey(k))
		for _, v := range headers[k] {
			if sensitive {
				v = redact(v)
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func requestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return "<NO BODY AVAILABLE>"
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}

	if !strings.HasPrefix(req.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return string(raw)
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		return string(raw)
	}
	for _, field := range redactedFormFields {
		if form.Has(field) {
			form.Set(field, "<redacted>")
		}
	}
	return form.Encode()
}

// dumpExchange renders a request and its response as plain text, session
// material and submitted passwords are redacted.
func dumpExchange(res *resty.Response) string {
	var out strings.Builder

	out.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&out, "%s %s\n\n", res.Request.Method, res.Request.URL)
	if res.Request.RawRequest != nil {
		writeHeaders(&out, res.Request.RawRequest.Header)
	}
	out.WriteString("\n")
	out.WriteString(requestBody(res.Request.RawRequest))

	// a redirect is dumped with where it points instead of the request url
	location := res.Request.URL
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			location = redirected.String()
		}
	}

	out.WriteString("\n\n---- RESPONSE ----\n\n")
	fmt.Fprintf(&out, "%d %s\n\n", res.StatusCode(), location)
	writeHeaders(&out, res.Header())
	out.WriteString("\n")
	out.Write(res.Body())
	return out.String()
}
