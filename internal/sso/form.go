package sso

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LoginForm holds the hidden fields of the CAS login form.
type LoginForm struct {
	Lt        string
	Execution string
	EventId   string
	Cllt      string
	Dllt      string
	Salt      string
}

func attrTrimmed(doc *goquery.Document, selector string) (string, bool) {
	value, ok := doc.Find(selector).First().Attr("value")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func attrOr(doc *goquery.Document, selector, fallback string) string {
	value, ok := attrTrimmed(doc, selector)
	if !ok {
		return fallback
	}
	return value
}

// ParseLoginForm extracts the hidden fields from the login page. It returns
// the names of the required fields it could not find, `execution` and the
// salt are required, everything else has a default.
func ParseLoginForm(body []byte) (LoginForm, []string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return LoginForm{}, nil, err
	}

	form := LoginForm{
		Lt:        attrOr(doc, "input[name=lt]", ""),
		Execution: attrOr(doc, "input[name=execution]", ""),
		EventId:   attrOr(doc, "input[name=_eventId]", "submit"),
		Cllt:      attrOr(doc, "input[name=cllt][value=userNameLogin]", "userNameLogin"),
		Dllt:      attrOr(doc, "input[name=dllt]", "generalLogin"),
		Salt:      attrOr(doc, "#pwdEncryptSalt", ""),
	}

	var missing []string
	if form.Execution == "" {
		missing = append(missing, "execution")
	}
	if form.Salt == "" {
		missing = append(missing, "pwdEncryptSalt")
	}
	return form, missing, nil
}

// Values builds the submission body, `encrypted` is the already encrypted password.
func (f LoginForm) Values(username, encrypted string) url.Values {
	values := url.Values{}
	values.Set("username", username)
	values.Set("password", encrypted)
	values.Set("passwordText", "")
	values.Set("lt", f.Lt)
	values.Set("execution", f.Execution)
	values.Set("_eventId", f.EventId)
	values.Set("cllt", f.Cllt)
	values.Set("dllt", f.Dllt)
	return values
}
