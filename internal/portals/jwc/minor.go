package jwc

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"csuassist/internal/failure"
	"csuassist/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"
	lru "github.com/hashicorp/golang-lru/v2"
)

type MinorRegistration struct {
	Index      string
	Major      string
	Department string
	Type       string
	Status     string
	// PlanUrl is the absolute url of the registration's course plan, empty
	// when the row has no plan link.
	PlanUrl string
	Plan    []PlanCourse
	// PlanError is set when the plan could not be fetched, the rest of the
	// registration is still valid.
	PlanError string
}

type MinorPayment struct {
	Index      string
	CourseId   string
	CourseName string
	Department string
	Class      string
	Place      string
	Time       string
	Teacher    string
	Credit     string
	Hours      string
	Fee        string
	Paid       string
}

type MinorInfo struct {
	Registrations []MinorRegistration
	Payments      []MinorPayment
}

// Minor returns the minor-program registrations and payments. When
// withPlans is set the plan page of every registration is fetched
// concurrently, each distinct plan url only once.
func (c Client) Minor(ctx context.Context, withPlans bool) (MinorInfo, error) {
	c.tel.ReportDebug("get minor", withPlans)

	res, err := c.session.Get(ctx, c.endpoint(minorRegPath), nil)
	if err != nil {
		return MinorInfo{}, c.fail(report_client_minor, fmt.Errorf("fetch registrations: %w", err))
	}
	empty := failure.NewEmptyFields("minor")
	registrations, err := parseMinorRegistrations(res.FinalUrl, res.Body, empty)
	if err != nil {
		return MinorInfo{}, c.fail(report_client_minor, err)
	}

	res, err = c.session.Get(ctx, c.endpoint(minorPaymentPath), nil)
	if err != nil {
		return MinorInfo{}, c.fail(report_client_minor, fmt.Errorf("fetch payments: %w", err))
	}
	payments, err := parseMinorPayments(res.Body, empty)
	if err != nil {
		return MinorInfo{}, c.fail(report_client_minor, err)
	}
	c.reportEmpty(report_client_minor, empty)

	if withPlans {
		c.fillPlans(ctx, registrations)
	}

	c.tel.ReportCount(report_client_minor, int64(len(registrations)))
	return MinorInfo{
		Registrations: registrations,
		Payments:      payments,
	}, nil
}

type planFetch struct {
	once    sync.Once
	courses []PlanCourse
	err     error
}

func planKey(rawUrl string) string {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return rawUrl
	}
	return purell.NormalizeURL(
		parsed,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeNonGreedy|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
}

// fillPlans writes the plan of every registration in place, a failed fetch
// only marks its own registration.
func (c Client) fillPlans(ctx context.Context, registrations []MinorRegistration) {
	// one slot per registration, an entry evicted mid fan-out would be
	// fetched a second time
	cache, err := lru.New[string, *planFetch](max(1, len(registrations)))
	if err != nil {
		panic(err)
	}
	mutex := sync.Mutex{}
	fetchFor := func(key string) *planFetch {
		mutex.Lock()
		defer mutex.Unlock()
		fetch, ok := cache.Get(key)
		if !ok {
			fetch = &planFetch{}
			cache.Add(key, fetch)
		}
		return fetch
	}

	wg := sync.WaitGroup{}
	for i := range registrations {
		link := registrations[i].PlanUrl
		if link == "" {
			continue
		}

		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()

			fetch := fetchFor(planKey(link))
			fetch.once.Do(func() {
				fetch.courses, fetch.err = c.minorPlan(ctx, link)
			})

			if fetch.err != nil {
				c.tel.ReportWarning(report_client_minor, fmt.Errorf("plan %s: %w", link, fetch.err))
				registrations[i].PlanError = fetch.err.Error()
				return
			}
			registrations[i].Plan = fetch.courses
		}()
	}
	wg.Wait()
}

func (c Client) minorPlan(ctx context.Context, link string) ([]PlanCourse, error) {
	res, err := c.session.Get(ctx, link, nil)
	if err != nil {
		return nil, err
	}
	courses, err := parsePlan("minor-plan", res.Body, nil)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		courses[i].AdjustReason = ""
	}
	return courses, nil
}

// ParseMinorRegistrations extracts the registration rows, plan links are
// resolved against pageUrl.
func ParseMinorRegistrations(pageUrl *url.URL, body []byte) ([]MinorRegistration, error) {
	return parseMinorRegistrations(pageUrl, body, nil)
}

func parseMinorRegistrations(pageUrl *url.URL, body []byte, empty *failure.EmptyFields) ([]MinorRegistration, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	if doc.Find("table#dataList").Length() == 0 {
		return nil, &failure.PageMarkerMissing{Operation: "minor", Marker: "table#dataList"}
	}

	registrations := []MinorRegistration{}
	dataRows(doc).Each(func(i int, row *goquery.Selection) {
		cells := htmlutil.CellTexts(row.Find("td"))
		registrations = append(registrations, MinorRegistration{
			Index:      htmlutil.At(cells, 0),
			Major:      empty.Check(i, "Major", htmlutil.At(cells, 1)),
			Department: htmlutil.At(cells, 2),
			Type:       htmlutil.At(cells, 3),
			Status:     htmlutil.At(cells, 4),
			PlanUrl:    planLink(pageUrl, row),
		})
	})
	return registrations, nil
}

// planLink finds the plan target of a registration row. The link is either
// a regular href, a `javascript:` pseudo-URL or an onclick handler, the
// latter two carry the target as their first quoted argument.
func planLink(pageUrl *url.URL, row *goquery.Selection) string {
	var target string
	row.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		target = htmlutil.PseudoURLTarget(href)
		if target == "" || target == "#" {
			onclick, _ := a.Attr("onclick")
			target = htmlutil.FirstQuoted(onclick)
		}
		return target == ""
	})
	if target == "" || pageUrl == nil {
		return target
	}
	return htmlutil.Resolve(pageUrl, target)
}

func ParseMinorPayments(body []byte) ([]MinorPayment, error) {
	return parseMinorPayments(body, nil)
}

func parseMinorPayments(body []byte, empty *failure.EmptyFields) ([]MinorPayment, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	if doc.Find("table#dataList").Length() == 0 {
		return nil, &failure.PageMarkerMissing{Operation: "minor-payments", Marker: "table#dataList"}
	}

	payments := []MinorPayment{}
	dataRows(doc).Each(func(i int, row *goquery.Selection) {
		cells := htmlutil.CellTexts(row.Find("td"))
		payments = append(payments, MinorPayment{
			Index:      htmlutil.At(cells, 0),
			CourseId:   empty.Check(i, "CourseId", htmlutil.At(cells, 1)),
			CourseName: empty.Check(i, "CourseName", htmlutil.At(cells, 2)),
			Department: htmlutil.At(cells, 3),
			Class:      htmlutil.At(cells, 4),
			Place:      htmlutil.At(cells, 5),
			Time:       htmlutil.At(cells, 6),
			Teacher:    htmlutil.At(cells, 7),
			Credit:     htmlutil.At(cells, 8),
			Hours:      htmlutil.At(cells, 9),
			Fee:        htmlutil.At(cells, 10),
			Paid:       htmlutil.At(cells, 11),
		})
	})
	return payments, nil
}
