package sso

import (
	"net/url"
	"strings"
)

const DefaultCasLoginUrl = "https://ca.csu.edu.cn/authserver/login"

// LandingPlaceholder in a priming step url is replaced by the url the
// credential submission landed on.
const LandingPlaceholder = "{landing}"

// PrimingStep is a GET issued after login only for the cookies it sets.
type PrimingStep struct {
	Name string
	Url  string
}

func (p PrimingStep) resolve(landing *url.URL) string {
	landingStr := ""
	if landing != nil {
		landingStr = landing.String()
	}
	return strings.ReplaceAll(p.Url, LandingPlaceholder, landingStr)
}

// PortalConfig is everything that differs between two CAS logins.
type PortalConfig struct {
	Name string
	// ServiceUrl is the `service` parameter passed to the CAS login page,
	// when empty the login targets CAS itself.
	ServiceUrl string
	// ExpectedHost must be a substring of the host the submission lands on.
	ExpectedHost string
	// ManualRedirect submits credentials without following redirects, the
	// landing url is then the resolved Location header of the response.
	ManualRedirect bool
	// TokenParam names a query parameter of the landing url that carries a
	// token needed by later requests.
	TokenParam string
	Priming    []PrimingStep
}

// LoginUrl is the CAS login url carrying this portal's service parameter.
func (p PortalConfig) LoginUrl(casLoginUrl string) string {
	if p.ServiceUrl == "" {
		return casLoginUrl
	}
	return casLoginUrl + "?service=" + url.QueryEscape(p.ServiceUrl)
}

var (
	// PortalJwc is the academic affairs system.
	PortalJwc = PortalConfig{
		Name:         "jwc",
		ServiceUrl:   "http://csujwc.its.csu.edu.cn/sso.jsp",
		ExpectedHost: "csujwc.its.csu.edu.cn",
	}

	// PortalEcard is the campus card platform. Its session token travels as a
	// query parameter on the landing url, visiting the landing page once more
	// makes the platform set its own cookies.
	PortalEcard = PortalConfig{
		Name:         "ecard",
		ServiceUrl:   "https://ecard.csu.edu.cn/berserker-auth/cas/login/wisedu?targetUrl=https://ecard.csu.edu.cn/plat-pc/?name=loginTransit",
		ExpectedHost: "ecard.csu.edu.cn",
		TokenParam:   "synjones-auth",
		Priming: []PrimingStep{
			{Name: "landing", Url: LandingPlaceholder},
		},
	}

	// PortalLibrary is the library's general portal.
	PortalLibrary = PortalConfig{
		Name:         "library",
		ServiceUrl:   "https://lib.csu.edu.cn/system/resource/code/auth/clogin.jsp",
		ExpectedHost: "lib.csu.edu.cn",
	}

	// PortalOpac is the library catalog. It only sets its cookies while the
	// ticket redirect is followed by hand, and its API needs cookies scoped to
	// the search page and to the site root as well.
	PortalOpac = PortalConfig{
		Name:           "opac",
		ServiceUrl:     "https://opac.lib.csu.edu.cn/csu_sso/login_auth/cas/csu/index",
		ExpectedHost:   "opac.lib.csu.edu.cn",
		ManualRedirect: true,
		Priming: []PrimingStep{
			{Name: "ticket", Url: LandingPlaceholder},
			{Name: "unify-index", Url: "https://opac.lib.csu.edu.cn/find/unify/index"},
			{Name: "home", Url: "https://opac.lib.csu.edu.cn/"},
		},
	}
)
