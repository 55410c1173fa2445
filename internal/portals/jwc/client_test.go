package jwc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"csuassist/internal/components/telemetry"
	"csuassist/internal/failure"
	"csuassist/internal/sso"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) (Client, *telemetry.RecordingAPI) {
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	tel := &telemetry.RecordingAPI{}
	session, err := sso.NewSession(sso.Options{}, tel)
	require.NoError(t, err)
	client, err := NewClient(session, server.URL+"/jsxsd/", tel)
	require.NoError(t, err)
	return client, tel
}

func TestClientGrades(t *testing.T) {
	var term string
	mux := http.NewServeMux()
	mux.HandleFunc("/jsxsd/kscj/yscjcx_list", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		term = r.PostForm.Get("xnxq01id")
		w.Write(gradesFixture)
	})
	client, tel := newTestClient(t, mux)

	grades, err := client.Grades(context.Background(), "2024-2025-1")
	require.NoError(t, err)
	require.Len(t, grades, 2)
	require.Equal(t, "2024-2025-1", term)

	counts := tel.Reports("count")
	require.Len(t, counts, 1)
	require.Equal(t, "jwc: "+report_client_grades, counts[0].ID)
	require.EqualValues(t, 2, counts[0].Count)
}

func TestClientGradesExpiredSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jsxsd/kscj/yscjcx_list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>请先登录</body></html>")
	})
	client, tel := newTestClient(t, mux)

	_, err := client.Grades(context.Background(), "")
	var missing *failure.PageMarkerMissing
	require.True(t, errors.As(err, &missing))
	require.NotEmpty(t, tel.Reports("broken"))
}

func TestClientRank(t *testing.T) {
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/jsxsd/kscj/zybm_cx", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `<select id="xqfw">
				<option>2024-2025-1</option>
				<option>2023-2024-2</option>
			</select>`)
			return
		}
		require.NoError(t, r.ParseForm())
		fmt.Fprintf(w, `<table id="dataList">
			<tr><th>学期</th><th>总成绩</th><th>班级排名</th><th>平均成绩</th></tr>
			<tr><td>%s</td><td>90</td><td>2</td><td>88.5</td></tr>
		</table>`, r.PostForm.Get("xqfw"))
	})
	client, _ := newTestClient(t, mux)

	ranks, err := client.Rank(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Rank{
		{Term: "2024-2025-1", TotalScore: "90", ClassRank: "2", AverScore: "88.5"},
		{Term: "2023-2024-2", TotalScore: "90", ClassRank: "2", AverScore: "88.5"},
	}, ranks)
	require.EqualValues(t, 3, requests.Load())
}

func TestClientRankAbortsOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jsxsd/kscj/zybm_cx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `<select id="xqfw"><option>2024-2025-1</option><option>2023-2024-2</option></select>`)
			return
		}
		http.Error(w, "down", http.StatusBadGateway)
	})
	client, _ := newTestClient(t, mux)

	ranks, err := client.Rank(context.Background())
	require.Nil(t, ranks)
	var network *failure.NetworkError
	require.True(t, errors.As(err, &network))
	require.Equal(t, http.StatusBadGateway, network.Status)
}

func TestClientScheduleWholeTerm(t *testing.T) {
	var mutex sync.Mutex
	forms := []map[string]string{}
	mux := http.NewServeMux()
	mux.HandleFunc("/jsxsd/xskb/xskb_list.do", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mutex.Lock()
		forms = append(forms, map[string]string{
			"zc":       r.PostForm.Get("zc"),
			"xnxq01id": r.PostForm.Get("xnxq01id"),
			"sfFD":     r.PostForm.Get("sfFD"),
		})
		mutex.Unlock()
		w.Write(scheduleFixture)
	})
	client, _ := newTestClient(t, mux)

	_, err := client.Schedule(context.Background(), "2024-2025-1", "0")
	require.NoError(t, err)
	schedule, err := client.Schedule(context.Background(), "2024-2025-1", "3")
	require.NoError(t, err)
	require.Len(t, schedule.Cells, 8)

	require.Equal(t, []map[string]string{
		{"zc": "", "xnxq01id": "2024-2025-1", "sfFD": "1"},
		{"zc": "3", "xnxq01id": "2024-2025-1", "sfFD": "1"},
	}, forms)
}

func TestClientMinorPlans(t *testing.T) {
	var planFetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/jsxsd/fxgl/fxbm_list", func(w http.ResponseWriter, r *http.Request) {
		w.Write(minorRegistrationsFixture)
	})
	mux.HandleFunc("/jsxsd/fxgl/fxjf_list", func(w http.ResponseWriter, r *http.Request) {
		w.Write(minorPaymentsFixture)
	})
	mux.HandleFunc("/jsxsd/fxgl/fxpyfa", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "1" {
			http.Error(w, "not found", http.StatusInternalServerError)
			return
		}
		planFetches.Add(1)
		w.Write(planFixture)
	})
	client, tel := newTestClient(t, mux)

	info, err := client.Minor(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, info.Payments, 1)
	require.Len(t, info.Registrations, 4)

	// registrations 1 and 3 point to the same plan
	require.EqualValues(t, 1, planFetches.Load())

	require.Equal(t, "1", info.Registrations[0].Index)
	require.Len(t, info.Registrations[0].Plan, 2)
	require.Empty(t, info.Registrations[0].PlanError)
	require.Equal(t, "", info.Registrations[0].Plan[1].AdjustReason)

	require.Equal(t, "2", info.Registrations[1].Index)
	require.Nil(t, info.Registrations[1].Plan)
	require.NotEmpty(t, info.Registrations[1].PlanError)

	require.Equal(t, "3", info.Registrations[2].Index)
	require.Equal(t, info.Registrations[0].Plan, info.Registrations[2].Plan)

	require.Equal(t, "4", info.Registrations[3].Index)
	require.Nil(t, info.Registrations[3].Plan)
	require.Empty(t, info.Registrations[3].PlanError)

	require.Len(t, tel.Reports("warning"), 1)
}

func TestClientMinorPlansFetchEachUrlOnce(t *testing.T) {
	const registrations = 200
	const distinctPlans = 100

	var rows strings.Builder
	for i := 0; i < registrations; i++ {
		fmt.Fprintf(
			&rows,
			`<tr><td>%d</td><td>专业%d</td><td>学院</td><td>辅修</td><td>已录取</td><td><a href="fxpyfa?id=%d">查看</a></td></tr>`,
			i+1, i, i%distinctPlans,
		)
	}
	page := fmt.Sprintf(`<html><body><table id="dataList"><tr><th>序号</th></tr>%s</table></body></html>`, rows.String())

	mutex := sync.Mutex{}
	hits := map[string]int{}
	mux := http.NewServeMux()
	mux.HandleFunc("/jsxsd/fxgl/fxbm_list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/jsxsd/fxgl/fxjf_list", func(w http.ResponseWriter, r *http.Request) {
		w.Write(minorPaymentsFixture)
	})
	mux.HandleFunc("/jsxsd/fxgl/fxpyfa", func(w http.ResponseWriter, r *http.Request) {
		mutex.Lock()
		hits[r.URL.Query().Get("id")]++
		mutex.Unlock()
		w.Write(planFixture)
	})
	client, tel := newTestClient(t, mux)

	info, err := client.Minor(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, info.Registrations, registrations)
	require.Len(t, hits, distinctPlans)
	for id, n := range hits {
		require.Equal(t, 1, n, "plan %s", id)
	}
	for _, registration := range info.Registrations {
		require.Len(t, registration.Plan, 2)
		require.Empty(t, registration.PlanError)
	}
	require.Empty(t, tel.Reports("warning"))
}

func TestClientMinorWithoutPlans(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jsxsd/fxgl/fxbm_list", func(w http.ResponseWriter, r *http.Request) {
		w.Write(minorRegistrationsFixture)
	})
	mux.HandleFunc("/jsxsd/fxgl/fxjf_list", func(w http.ResponseWriter, r *http.Request) {
		w.Write(minorPaymentsFixture)
	})
	mux.HandleFunc("/jsxsd/fxgl/fxpyfa", func(w http.ResponseWriter, r *http.Request) {
		t.Error("plan page should not be requested")
	})
	client, _ := newTestClient(t, mux)

	info, err := client.Minor(context.Background(), false)
	require.NoError(t, err)
	for _, registration := range info.Registrations {
		require.Nil(t, registration.Plan)
	}
}

func TestClientProfileReportsEmptyFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/jsxsd/grxx/xsxx", func(w http.ResponseWriter, r *http.Request) {
		w.Write(profileFixture)
	})
	client, tel := newTestClient(t, mux)

	profile, err := client.Profile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "张三", profile.Field("姓名"))

	warnings := tel.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, failure.EmptyField{Operation: "profile", Field: "班级"}, warnings[0].Params[0])
}
