// Package campus exposes every portal operation as a single call taking the
// student's credentials. Each call logs in on a fresh session, uses it for
// the requests of that one operation and then drops it, nothing outlives the
// call.
package campus

import (
	"context"
	"net/url"

	"csuassist/internal/components/assert"
	"csuassist/internal/components/telemetry"
	"csuassist/internal/portals/bus"
	"csuassist/internal/portals/ecard"
	"csuassist/internal/portals/jwc"
	"csuassist/internal/portals/library"
	"csuassist/internal/sso"
)

// Portals overrides the CAS configuration of a portal, a portal left at its
// zero value keeps the production configuration.
type Portals struct {
	Jwc     sso.PortalConfig
	Ecard   sso.PortalConfig
	Library sso.PortalConfig
	Opac    sso.PortalConfig
}

func orDefault(portal, fallback sso.PortalConfig) sso.PortalConfig {
	if portal.Name == "" {
		return fallback
	}
	return portal
}

func (p Portals) withDefaults() Portals {
	return Portals{
		Jwc:     orDefault(p.Jwc, sso.PortalJwc),
		Ecard:   orDefault(p.Ecard, sso.PortalEcard),
		Library: orDefault(p.Library, sso.PortalLibrary),
		Opac:    orDefault(p.Opac, sso.PortalOpac),
	}
}

// Options points the service at its upstreams, empty urls take the
// production value of the respective portal package.
type Options struct {
	Sso      sso.Options
	JwcUrl   string
	EcardUrl string
	BusUrl   string
	Library  library.Endpoints
	Portals  Portals
}

type Service struct {
	opts Options
	tel  telemetry.API
}

func NewService(opts Options, tel telemetry.API) Service {
	assert.NotNil(tel, "tel")
	opts.Portals = opts.Portals.withDefaults()
	return Service{opts: opts, tel: tel}
}

func (s Service) login(ctx context.Context, portal sso.PortalConfig, studentId, password string) (sso.Authenticated, error) {
	s.tel.ReportDebug("campus: login", portal.Name, sso.MaskSensitive(studentId))
	auth := sso.NewAuthenticator(portal, s.opts.Sso, s.tel)
	return auth.Login(ctx, sso.NewCredential(studentId, password))
}

func (s Service) jwc(ctx context.Context, studentId, password string) (jwc.Client, error) {
	auth, err := s.login(ctx, s.opts.Portals.Jwc, studentId, password)
	if err != nil {
		return jwc.Client{}, err
	}
	return jwc.NewClient(auth.Session, s.opts.JwcUrl, s.tel)
}

func (s Service) ecard(ctx context.Context, studentId, password string) (ecard.Client, error) {
	auth, err := s.login(ctx, s.opts.Portals.Ecard, studentId, password)
	if err != nil {
		return ecard.Client{}, err
	}
	return ecard.NewClient(auth, s.opts.EcardUrl, s.tel)
}

func (s Service) library(ctx context.Context, portal sso.PortalConfig, studentId, password string) (library.Client, error) {
	auth, err := s.login(ctx, portal, studentId, password)
	if err != nil {
		return library.Client{}, err
	}
	return library.NewClient(auth.Session, s.opts.Library, s.tel)
}

func (s Service) anonymousLibrary() (library.Client, error) {
	session, err := sso.NewSession(s.opts.Sso, s.tel)
	if err != nil {
		return library.Client{}, err
	}
	return library.NewClient(session, s.opts.Library, s.tel)
}

func (s Service) Grades(ctx context.Context, studentId, password, term string) ([]jwc.Grade, error) {
	client, err := s.jwc(ctx, studentId, password)
	if err != nil {
		return nil, err
	}
	return client.Grades(ctx, term)
}

func (s Service) Rank(ctx context.Context, studentId, password string) ([]jwc.Rank, error) {
	client, err := s.jwc(ctx, studentId, password)
	if err != nil {
		return nil, err
	}
	return client.Rank(ctx)
}

// Schedule returns the class grid of a term, week "0" asks for the whole term.
func (s Service) Schedule(ctx context.Context, studentId, password, term, week string) (jwc.Schedule, error) {
	client, err := s.jwc(ctx, studentId, password)
	if err != nil {
		return jwc.Schedule{}, err
	}
	return client.Schedule(ctx, term, week)
}

func (s Service) LevelExams(ctx context.Context, studentId, password string) ([]jwc.LevelExam, error) {
	client, err := s.jwc(ctx, studentId, password)
	if err != nil {
		return nil, err
	}
	return client.LevelExams(ctx)
}

func (s Service) Profile(ctx context.Context, studentId, password string) (jwc.Profile, error) {
	client, err := s.jwc(ctx, studentId, password)
	if err != nil {
		return jwc.Profile{}, err
	}
	return client.Profile(ctx)
}

func (s Service) Minor(ctx context.Context, studentId, password string, withPlans bool) (jwc.MinorInfo, error) {
	client, err := s.jwc(ctx, studentId, password)
	if err != nil {
		return jwc.MinorInfo{}, err
	}
	return client.Minor(ctx, withPlans)
}

func (s Service) StudentPlan(ctx context.Context, studentId, password string) ([]jwc.PlanCourse, error) {
	client, err := s.jwc(ctx, studentId, password)
	if err != nil {
		return nil, err
	}
	return client.StudentPlan(ctx)
}

// Summary renders grades and ranks as markdown, an empty term covers every term.
func (s Service) Summary(ctx context.Context, studentId, password, term string) (string, error) {
	client, err := s.jwc(ctx, studentId, password)
	if err != nil {
		return "", err
	}
	return client.Summary(ctx, term)
}

func (s Service) CardBalance(ctx context.Context, studentId, password string) (ecard.CardSnapshot, error) {
	client, err := s.ecard(ctx, studentId, password)
	if err != nil {
		return ecard.CardSnapshot{}, err
	}
	return client.Card(ctx)
}

func (s Service) CardTurnover(ctx context.Context, studentId, password string, query ecard.TurnoverQuery) (ecard.TurnoverPage, error) {
	client, err := s.ecard(ctx, studentId, password)
	if err != nil {
		return ecard.TurnoverPage{}, err
	}
	return client.Turnover(ctx, query)
}

// LibraryDBSearch searches the e-resource database index, it needs no login.
func (s Service) LibraryDBSearch(ctx context.Context, name string) (library.DBSearchResult, error) {
	client, err := s.anonymousLibrary()
	if err != nil {
		return library.DBSearchResult{}, err
	}
	return client.SearchDatabases(ctx, name)
}

func (s Service) BookSearch(ctx context.Context, studentId, password, keyword string) (library.BookSearchResult, error) {
	client, err := s.library(ctx, s.opts.Portals.Opac, studentId, password)
	if err != nil {
		return library.BookSearchResult{}, err
	}
	return client.SearchBooks(ctx, keyword)
}

func (s Service) BookCopies(ctx context.Context, studentId, password, recordId string) (library.CopiesResult, error) {
	client, err := s.library(ctx, s.opts.Portals.Opac, studentId, password)
	if err != nil {
		return library.CopiesResult{}, err
	}
	return client.BookCopies(ctx, recordId)
}

// Seats reads the seat availability of every campus library, it needs no login.
func (s Service) Seats(ctx context.Context) (library.SeatOverview, error) {
	client, err := s.anonymousLibrary()
	if err != nil {
		return library.SeatOverview{}, err
	}
	return client.Seats(ctx)
}

// LibraryFetch issues one request to the library portal after its login, an
// empty method means GET.
func (s Service) LibraryFetch(ctx context.Context, studentId, password, method, rawUrl string, form url.Values) (library.RawPage, error) {
	client, err := s.library(ctx, s.opts.Portals.Library, studentId, password)
	if err != nil {
		return library.RawPage{}, err
	}
	return client.Fetch(ctx, method, rawUrl, form)
}

// Bus searches the shuttle timetable, it needs no login.
func (s Service) Bus(ctx context.Context, query bus.Query) ([]bus.Departure, error) {
	session, err := sso.NewSession(s.opts.Sso, s.tel)
	if err != nil {
		return nil, err
	}
	client, err := bus.NewClient(session, s.opts.BusUrl, s.tel)
	if err != nil {
		return nil, err
	}
	return client.Search(ctx, query)
}
