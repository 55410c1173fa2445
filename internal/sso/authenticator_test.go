package sso

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"csuassist/internal/components/telemetry"
	"csuassist/internal/failure"

	"github.com/stretchr/testify/require"
)

const fakeSalt = "0123456789abcdef"

func decryptSubmitted(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("bad ciphertext length %d", len(raw))
	}
	block, err := aes.NewCipher([]byte(fakeSalt))
	if err != nil {
		return "", err
	}
	// the first block only depends on the unknown iv, so decrypt from the
	// second block onwards using the first ciphertext block as its iv
	plain := make([]byte, len(raw)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, raw[:aes.BlockSize]).CryptBlocks(plain, raw[aes.BlockSize:])
	padding := int(plain[len(plain)-1])
	if padding < 1 || padding > aes.BlockSize || padding > len(plain) {
		return "", fmt.Errorf("bad padding")
	}
	plain = plain[:len(plain)-padding]
	// the prefix is 64 chars, 16 of which were in the skipped first block
	if len(plain) < cipherPrefixLength-aes.BlockSize {
		return "", fmt.Errorf("plaintext too short")
	}
	return string(plain[cipherPrefixLength-aes.BlockSize:]), nil
}

type fakeCas struct {
	server  *httptest.Server
	portal  *httptest.Server
	primed  atomic.Int32
	manual  bool
	omitLt  bool
	lastLt  string
	service string
}

func newFakeCas(t *testing.T) *fakeCas {
	f := &fakeCas{}

	portalMux := http.NewServeMux()
	portalMux.HandleFunc("/landing", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "PORTAL", Value: "landed", Path: "/"})
		fmt.Fprint(w, "welcome")
	})
	portalMux.HandleFunc("/prime", func(w http.ResponseWriter, r *http.Request) {
		f.primed.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "PRIMED", Value: "yes", Path: "/"})
		fmt.Fprint(w, "primed")
	})
	f.portal = httptest.NewServer(portalMux)
	t.Cleanup(f.portal.Close)

	casMux := http.NewServeMux()
	casMux.HandleFunc("/authserver/login", func(w http.ResponseWriter, r *http.Request) {
		f.service = r.URL.Query().Get("service")
		http.SetCookie(w, &http.Cookie{Name: "route", Value: "cas-1", Path: "/"})
		http.Redirect(w, r, "/authserver/login/form", http.StatusFound)
	})
	casMux.HandleFunc("/authserver/login/form", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if _, err := r.Cookie("route"); err != nil {
				http.Error(w, "no cookie", http.StatusBadRequest)
				return
			}
			fmt.Fprintf(w, `<form>
				<input type="hidden" name="lt" value="LT-1"/>
				<input type="hidden" name="execution" value="e1s1"/>
				<input type="hidden" id="pwdEncryptSalt" value="%s"/>
			</form>`, fakeSalt)
			return
		}

		err := r.ParseForm()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.lastLt = r.PostForm.Get("lt")
		password, err := decryptSubmitted(r.PostForm.Get("password"))
		if err != nil || password != "correct" || r.PostForm.Get("username") != "8208210000" ||
			r.PostForm.Get("execution") != "e1s1" || r.PostForm.Get("_eventId") != "submit" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, "bad credentials")
			return
		}
		http.Redirect(w, r, f.portal.URL+"/landing?synjones-auth=tok-123", http.StatusFound)
	})
	f.server = httptest.NewServer(casMux)
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeCas) options() Options {
	return Options{CasLoginUrl: f.server.URL + "/authserver/login"}
}

func (f *fakeCas) portalConfig() PortalConfig {
	host := strings.TrimPrefix(f.portal.URL, "http://")
	return PortalConfig{
		Name:         "fake",
		ServiceUrl:   f.portal.URL + "/landing",
		ExpectedHost: host,
		TokenParam:   "synjones-auth",
		Priming: []PrimingStep{
			{Name: "prime", Url: f.portal.URL + "/prime"},
		},
	}
}

func TestLoginAuthenticated(t *testing.T) {
	cas := newFakeCas(t)
	tel := &telemetry.RecordingAPI{}

	auth := NewAuthenticator(cas.portalConfig(), cas.options(), tel)
	result, err := auth.Login(context.Background(), NewCredential("8208210000", "correct"))
	require.NoError(t, err)

	require.Equal(t, cas.portal.URL+"/landing", cas.service)
	require.Equal(t, "LT-1", cas.lastLt)
	require.Equal(t, "tok-123", result.Token)
	require.Equal(t, "/landing", result.Landing.Path)
	require.Equal(t, int32(1), cas.primed.Load())

	names := []string{}
	for _, c := range result.Session.Cookies(cas.portal.URL + "/") {
		names = append(names, c.Name)
	}
	// cookies are not isolated by port so the cas cookies show up here as well
	require.Subset(t, names, []string{"PORTAL", "PRIMED"})

	require.Empty(t, tel.Reports("broken"))
	require.Empty(t, tel.Reports("warning"))
}

func TestLoginRejected(t *testing.T) {
	cas := newFakeCas(t)
	tel := &telemetry.RecordingAPI{}

	auth := NewAuthenticator(cas.portalConfig(), cas.options(), tel)
	_, err := auth.Login(context.Background(), NewCredential("8208210000", "wrong"))

	var rejected *failure.AuthRejected
	require.True(t, errors.As(err, &rejected), err)
	require.Equal(t, "fake", rejected.Portal)
	require.Equal(t, int32(0), cas.primed.Load())
	require.Len(t, tel.Reports("warning"), 1)
}

func TestLoginManualRedirect(t *testing.T) {
	cas := newFakeCas(t)
	portal := cas.portalConfig()
	portal.ManualRedirect = true
	portal.Priming = []PrimingStep{
		{Name: "ticket", Url: LandingPlaceholder},
		{Name: "prime", Url: cas.portal.URL + "/prime"},
	}

	auth := NewAuthenticator(portal, cas.options(), telemetry.NoopAPI{})
	result, err := auth.Login(context.Background(), NewCredential("8208210000", "correct"))
	require.NoError(t, err)
	require.Equal(t, "tok-123", result.Token)

	names := []string{}
	for _, c := range result.Session.Cookies(cas.portal.URL + "/") {
		names = append(names, c.Name)
	}
	require.Subset(t, names, []string{"PORTAL", "PRIMED"})

	_, err = auth.Login(context.Background(), NewCredential("8208210000", "wrong"))
	var rejected *failure.AuthRejected
	require.True(t, errors.As(err, &rejected))
}

func TestLoginParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<form><input name="execution" value="e1s1"/></form>`)
	}))
	defer server.Close()

	portal := PortalConfig{Name: "broken", ExpectedHost: "example.invalid"}
	auth := NewAuthenticator(portal, Options{CasLoginUrl: server.URL}, telemetry.NoopAPI{})
	_, err := auth.Login(context.Background(), NewCredential("8208210000", "correct"))

	var parseErr *failure.AuthParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, []string{"pwdEncryptSalt"}, parseErr.Missing)
}

func TestLoginNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	portal := PortalConfig{Name: "down", ExpectedHost: "example.invalid"}
	auth := NewAuthenticator(portal, Options{CasLoginUrl: server.URL}, telemetry.NoopAPI{})
	_, err := auth.Login(context.Background(), NewCredential("8208210000", "correct"))

	var netErr *failure.NetworkError
	require.True(t, errors.As(err, &netErr))
	require.Equal(t, http.StatusBadGateway, netErr.Status)
}

func TestLoginSessionsAreIsolated(t *testing.T) {
	cas := newFakeCas(t)
	auth := NewAuthenticator(cas.portalConfig(), cas.options(), telemetry.NoopAPI{})

	first, err := auth.Login(context.Background(), NewCredential("8208210000", "correct"))
	require.NoError(t, err)
	second, err := auth.Login(context.Background(), NewCredential("8208210000", "correct"))
	require.NoError(t, err)

	require.NotEqual(t, first.Session.Id(), second.Session.Id())
	require.NotSame(t, first.Session.jar, second.Session.jar)
}

func TestSessionStatusHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/redirect":
			http.Redirect(w, r, "/target?x=1", http.StatusFound)
		case "/target":
			fmt.Fprint(w, "target")
		case "/json":
			var body bytes.Buffer
			body.ReadFrom(r.Body)
			w.Header().Set("content-type", "application/json")
			fmt.Fprintf(w, `{"echo":%s,"ct":%q}`, body.String(), r.Header.Get("content-type"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	session, err := NewSession(Options{}, telemetry.NoopAPI{})
	require.NoError(t, err)
	ctx := context.Background()

	res, err := session.Get(ctx, server.URL+"/redirect", nil)
	require.NoError(t, err)
	require.Equal(t, "/target", res.FinalUrl.Path)
	require.Equal(t, "target", string(res.Body))

	res, err = session.Do(ctx, Request{Method: http.MethodGet, Url: server.URL + "/redirect", NoFollow: true})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, res.Status)
	location, ok := res.Location()
	require.True(t, ok)
	require.Equal(t, server.URL+"/target?x=1", location.String())

	_, err = session.Get(ctx, server.URL+"/missing", nil)
	var netErr *failure.NetworkError
	require.True(t, errors.As(err, &netErr))
	require.Equal(t, http.StatusNotFound, netErr.Status)

	res, err = session.Do(ctx, Request{Method: http.MethodGet, Url: server.URL + "/missing", AnyStatus: true})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, res.Status)

	res, err = session.Do(ctx, Request{
		Method: http.MethodPost,
		Url:    server.URL + "/json",
		Json:   map[string]any{"page": 1},
	})
	require.NoError(t, err)
	require.Equal(t, `{"echo":{"page":1},"ct":"application/json"}`, string(res.Body))

	_, err = session.Get(ctx, "http://127.0.0.1:1/unreachable", nil)
	require.True(t, errors.As(err, &netErr))
	require.Equal(t, 0, netErr.Status)
	require.NotNil(t, netErr.Cause)
}
