package telemetry

import "sync"

// Report is a single call captured by RecordingAPI.
type Report struct {
	Kind   string
	ID     string
	Params []any
	Count  int64
}

// RecordingAPI keeps every report in memory, it is meant for tests that
// assert on what a component reported.
type RecordingAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func (r *RecordingAPI) add(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *RecordingAPI) ReportBroken(id string, params ...any) {
	r.add(Report{Kind: "broken", ID: id, Params: params})
}

func (r *RecordingAPI) ReportWarning(id string, params ...any) {
	r.add(Report{Kind: "warning", ID: id, Params: params})
}

func (r *RecordingAPI) ReportDebug(msg string, params ...any) {
	r.add(Report{Kind: "debug", ID: msg, Params: params})
}

func (r *RecordingAPI) ReportCount(id string, count int64) {
	r.add(Report{Kind: "count", ID: id, Count: count})
}

// Reports returns a copy of the captured reports of the given kind, or all of
// them if kind is empty.
func (r *RecordingAPI) Reports(kind string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := []Report{}
	for _, report := range r.reports {
		if kind != "" && report.Kind != kind {
			continue
		}
		out = append(out, report)
	}
	return out
}
