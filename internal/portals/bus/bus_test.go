package bus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"csuassist/internal/components/telemetry"
	"csuassist/internal/failure"
	"csuassist/internal/sso"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const departuresFixture = `{"d":{"data":[
	{"id":"381","start":"07:00","station":["校本部","南校区","新校区"]},
	{"start":"07:30","station":["校本部","新校区"]},
	{"id":382,"start":"08:00","station":null}
]}}`

func TestParseDepartures(t *testing.T) {
	const detail = "https://wxxy.csu.edu.cn/regularbus/wap/default/info"

	testCases := []struct {
		name     string
		date     string
		expected []Departure
	}{
		{
			name: "unpadded date",
			date: "2024/9/2",
			expected: []Departure{
				{StartTime: "07:00", Stations: []string{"校本部", "南校区", "新校区"}},
				{StartTime: "07:30", Stations: []string{"校本部", "新校区"}},
				{StartTime: "08:00", Stations: []string{}},
			},
		},
		{
			name: "iso date",
			date: "2024-09-02",
			expected: []Departure{
				{
					StartTime: "07:00",
					Stations:  []string{"校本部", "南校区", "新校区"},
					DetailUrl: detail + "?date=2024-09-02&id=381",
				},
				{StartTime: "07:30", Stations: []string{"校本部", "新校区"}},
				{
					StartTime: "08:00",
					Stations:  []string{},
					DetailUrl: detail + "?date=2024-09-02&id=382",
				},
			},
		},
		{
			name: "compact date",
			date: "20240902",
			expected: []Departure{
				{
					StartTime: "07:00",
					Stations:  []string{"校本部", "南校区", "新校区"},
					DetailUrl: detail + "?date=2024-09-02&id=381",
				},
				{StartTime: "07:30", Stations: []string{"校本部", "新校区"}},
				{
					StartTime: "08:00",
					Stations:  []string{},
					DetailUrl: detail + "?date=2024-09-02&id=382",
				},
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			departures, err := ParseDepartures(detail, test.date, []byte(departuresFixture))
			require.NoError(t, err)
			if diff := cmp.Diff(test.expected, departures); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestParseDeparturesNotJson(t *testing.T) {
	_, err := ParseDepartures("", "", []byte("<html>维护中</html>"))
	var missing *failure.PageMarkerMissing
	require.True(t, errors.As(err, &missing))
}

func TestClientSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/regularbus/wap/default/index-ajax", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "2", r.PostForm.Get("bus_id"))
		require.Equal(t, "校本部", r.PostForm.Get("cfz"))
		require.Equal(t, "新校区", r.PostForm.Get("ddz"))
		require.Equal(t, "06:00", r.PostForm.Get("fcsjStart"))
		fmt.Fprint(w, departuresFixture)
	})
	mux.HandleFunc("/regularbus/wap/default/broken/index-ajax", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	tel := &telemetry.RecordingAPI{}
	session, err := sso.NewSession(sso.Options{}, tel)
	require.NoError(t, err)
	client, err := NewClient(session, server.URL+"/regularbus/wap/default/", tel)
	require.NoError(t, err)

	departures, err := client.Search(context.Background(), Query{
		Date:           "2024-09-02",
		StartStation:   "校本部",
		EndStation:     "新校区",
		StartTimeLeft:  "06:00",
		StartTimeRight: "09:00",
	})
	require.NoError(t, err)
	require.Len(t, departures, 3)
	require.Equal(t,
		server.URL+"/regularbus/wap/default/info?date=2024-09-02&id=381",
		departures[0].DetailUrl,
	)

	broken, err := NewClient(session, server.URL+"/regularbus/wap/default/broken/", tel)
	require.NoError(t, err)
	_, err = broken.Search(context.Background(), Query{})
	var network *failure.NetworkError
	require.True(t, errors.As(err, &network))
}
