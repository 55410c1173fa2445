// Package library talks to the library's systems: the e-resource database
// index, the OPAC catalog, the seat reservation site and the library portal.
// The catalog needs a session from the OPAC login, the database index and
// the seat site work with an anonymous session.
package library

import (
	"bytes"
	"fmt"
	"net/url"

	"csuassist/internal/components/assert"
	"csuassist/internal/components/telemetry"
	"csuassist/internal/sso"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_client_databases   = "client.databases"
	report_client_book_search = "client.book-search"
	report_client_book_copies = "client.book-copies"
	report_client_seats       = "client.seats"
	report_client_fetch       = "client.fetch"
)

// Endpoints are the base urls of the library systems, empty fields take
// their production value.
type Endpoints struct {
	Database string `json:"database"`
	Opac     string `json:"opac"`
	Seats    string `json:"seats"`
}

var DefaultEndpoints = Endpoints{
	Database: "https://libdb.csu.edu.cn/",
	Opac:     "https://opac.lib.csu.edu.cn/",
	Seats:    "https://libzw.csu.edu.cn/",
}

func (e Endpoints) withDefaults() Endpoints {
	if e.Database == "" {
		e.Database = DefaultEndpoints.Database
	}
	if e.Opac == "" {
		e.Opac = DefaultEndpoints.Opac
	}
	if e.Seats == "" {
		e.Seats = DefaultEndpoints.Seats
	}
	return e
}

type Client struct {
	session  *sso.Session
	database *url.URL
	opac     *url.URL
	seats    *url.URL
	tel      telemetry.API
}

func NewClient(session *sso.Session, endpoints Endpoints, tel telemetry.API) (Client, error) {
	assert.NotNil(session, "session")
	assert.NotNil(tel, "tel")

	endpoints = endpoints.withDefaults()
	database, err := url.Parse(endpoints.Database)
	if err != nil {
		return Client{}, fmt.Errorf("database endpoint: %w", err)
	}
	opac, err := url.Parse(endpoints.Opac)
	if err != nil {
		return Client{}, fmt.Errorf("opac endpoint: %w", err)
	}
	seats, err := url.Parse(endpoints.Seats)
	if err != nil {
		return Client{}, fmt.Errorf("seats endpoint: %w", err)
	}

	return Client{
		session:  session,
		database: database,
		opac:     opac,
		seats:    seats,
		tel:      telemetry.NewScopedAPI("library", tel),
	}, nil
}

func resolve(base *url.URL, path string) string {
	return base.ResolveReference(&url.URL{Path: path}).String()
}

func parseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
