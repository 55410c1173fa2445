package sso

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"csuassist/internal/components/assert"
	"csuassist/internal/components/telemetry"
	"csuassist/internal/failure"
)

const (
	report_authenticator_login   = "authenticator.login"
	report_authenticator_priming = "authenticator.priming"
)

type loginState int

const (
	stateInit loginState = iota
	stateFetchLoginPage
	stateParseForm
	stateSubmitCredentials
	stateValidateRedirect
	statePriming
	stateAuthenticated
)

func (s loginState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateFetchLoginPage:
		return "fetch-login-page"
	case stateParseForm:
		return "parse-form"
	case stateSubmitCredentials:
		return "submit-credentials"
	case stateValidateRedirect:
		return "validate-redirect"
	case statePriming:
		return "priming"
	case stateAuthenticated:
		return "authenticated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Authenticator performs the CAS login for one portal. The same machine
// serves every portal, everything portal specific lives in PortalConfig.
type Authenticator struct {
	portal PortalConfig
	opts   Options
	cipher Cipher
	tel    telemetry.API
}

func NewAuthenticator(portal PortalConfig, opts Options, tel telemetry.API) Authenticator {
	assert.NotNil(tel, "tel")
	assert.NotEmptyStr(portal.Name, "portal name")
	assert.NotEmptyStr(portal.ExpectedHost, "portal expected host")

	return Authenticator{
		portal: portal,
		opts:   opts.withDefaults(),
		tel:    telemetry.NewScopedAPI("sso", tel),
	}
}

// WithCipher replaces the password cipher, tests use it to fix the random source.
func (a Authenticator) WithCipher(c Cipher) Authenticator {
	a.cipher = c
	return a
}

func (a Authenticator) Portal() PortalConfig {
	return a.portal
}

// Authenticated is a session that completed a portal's login.
type Authenticated struct {
	Session *Session
	// Landing is where the credential submission ended up.
	Landing *url.URL
	// Token is the value of the portal's TokenParam on the landing url, it is
	// empty when the portal has none or the parameter was absent.
	Token string
}

type loginRun struct {
	a         Authenticator
	cred      Credential
	session   *Session
	loginPage Response
	form      LoginForm
	landing   *url.URL
}

// Login runs init -> fetch login page -> parse form -> submit credentials ->
// validate redirect -> priming on a fresh session and returns it once authenticated.
func (a Authenticator) Login(ctx context.Context, cred Credential) (Authenticated, error) {
	session, err := NewSession(a.opts, a.tel)
	if err != nil {
		return Authenticated{}, err
	}
	run := &loginRun{a: a, cred: cred, session: session}

	state := stateInit
	for state != stateAuthenticated {
		next, err := run.step(ctx, state)
		if err != nil {
			err = fmt.Errorf("%s login: %s: %w", a.portal.Name, state, err)
			var rejected *failure.AuthRejected
			if errors.As(err, &rejected) {
				a.tel.ReportWarning(report_authenticator_login, err, a.portal.Name, cred)
			} else {
				a.tel.ReportBroken(report_authenticator_login, err, a.portal.Name, cred)
			}
			return Authenticated{}, err
		}
		a.tel.ReportDebug("login state", a.portal.Name, state.String(), next.String())
		state = next
	}

	// stateValidateRedirect rejects a nil landing, so it is set from here on
	out := Authenticated{
		Session: session,
		Landing: run.landing,
	}
	if a.portal.TokenParam != "" {
		out.Token = run.landing.Query().Get(a.portal.TokenParam)
	}
	a.tel.ReportDebug("session established", a.portal.Name, session.Id(), run.landing.Host)
	return out, nil
}

func (r *loginRun) step(ctx context.Context, state loginState) (loginState, error) {
	switch state {
	case stateInit:
		return stateFetchLoginPage, nil
	case stateFetchLoginPage:
		return stateParseForm, r.fetchLoginPage(ctx)
	case stateParseForm:
		return stateSubmitCredentials, r.parseForm()
	case stateSubmitCredentials:
		return stateValidateRedirect, r.submitCredentials(ctx)
	case stateValidateRedirect:
		return statePriming, ValidateRedirect(r.a.portal, r.landing)
	case statePriming:
		return stateAuthenticated, r.prime(ctx)
	}
	return state, fmt.Errorf("unknown login state %s", state)
}

func (r *loginRun) fetchLoginPage(ctx context.Context) error {
	res, err := r.session.Get(ctx, r.a.portal.LoginUrl(r.a.opts.CasLoginUrl), nil)
	if err != nil {
		return err
	}
	r.loginPage = res
	return nil
}

func (r *loginRun) parseForm() error {
	form, missing, err := ParseLoginForm(r.loginPage.Body)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &failure.AuthParseError{Portal: r.a.portal.Name, Missing: missing}
	}
	r.form = form
	return nil
}

func (r *loginRun) submitCredentials(ctx context.Context) error {
	password, err := r.cred.Password()
	if err != nil {
		return fmt.Errorf("open credential: %w", err)
	}
	encrypted, err := r.a.cipher.Encrypt(password, r.form.Salt)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}

	// the form posts back to wherever the login page ended up, which may not
	// be the url originally requested
	postUrl := r.loginPage.FinalUrl.String()
	res, err := r.session.Do(ctx, Request{
		Method:    http.MethodPost,
		Url:       postUrl,
		Form:      r.form.Values(r.cred.StudentId, encrypted),
		NoFollow:  r.a.portal.ManualRedirect,
		AnyStatus: true,
	})
	if err != nil {
		return err
	}

	if !r.a.portal.ManualRedirect {
		r.landing = res.FinalUrl
		return nil
	}
	location, ok := res.Location()
	if !ok {
		return &failure.AuthRejected{
			Portal:       r.a.portal.Name,
			ExpectedHost: r.a.portal.ExpectedHost,
			FinalURL:     res.FinalUrl.String(),
		}
	}
	r.landing = location
	return nil
}

func (r *loginRun) prime(ctx context.Context) error {
	for _, step := range r.a.portal.Priming {
		target := step.resolve(r.landing)
		res, err := r.session.Do(ctx, Request{
			Method:    http.MethodGet,
			Url:       target,
			AnyStatus: true,
		})
		if err != nil {
			return fmt.Errorf("priming %s: %w", step.Name, err)
		}
		if res.Status >= 400 {
			r.a.tel.ReportWarning(
				report_authenticator_priming,
				fmt.Errorf("priming %s: status %d", step.Name, res.Status),
				r.a.portal.Name,
			)
		}
	}
	return nil
}

// ValidateRedirect succeeds iff the landing url's host contains the
// portal's expected host.
func ValidateRedirect(portal PortalConfig, landing *url.URL) error {
	if landing != nil && strings.Contains(landing.Host, portal.ExpectedHost) {
		return nil
	}
	finalUrl := ""
	if landing != nil {
		finalUrl = landing.String()
	}
	return &failure.AuthRejected{
		Portal:       portal.Name,
		ExpectedHost: portal.ExpectedHost,
		FinalURL:     finalUrl,
	}
}
