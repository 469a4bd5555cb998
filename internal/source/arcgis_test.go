package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func arcgisServer(t *testing.T, count int, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("returnCountOnly") == "true" {
			fmt.Fprintf(w, `{"count": %d}`, count)
			return
		}
		offset := r.URL.Query().Get("resultOffset")
		body, ok := pages[offset]
		if !ok {
			t.Errorf("unexpected page offset %q", offset)
			body = `{"features": []}`
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestArcGISFetchPaginates(t *testing.T) {
	pages := map[string]string{
		"0": `{"features": [
			{"attributes": {"ObjectId": 1, "Case_": 1584726312000, "County": "Broward", "Age": 63, "Gender": "Male", "Travel_related": "No", "Origin": null, "Died": "NA", "Contact": "No"}},
			{"attributes": {"ObjectId": 2, "Case_": 1584726312000, "County": "Dade", "Age": "29", "Gender": "Female", "Travel_related": "Yes", "Origin": "ny; italy", "Died": null, "Contact": "Yes"}}
		]}`,
		"2": `{"features": [
			{"attributes": {"ObjectId": 3, "Case_": 1584812712000, "County": "Manatee", "Age": null, "Gender": "Male", "Travel_related": "Under investigation"}}
		]}`,
	}
	server := arcgisServer(t, 3, pages)

	src := NewArcGISSource(ArcGISConfig{
		URL:       server.URL,
		PageSize:  2,
		PageDelay: time.Millisecond,
	})

	rows, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, "1", rows[0].CaseNumber)
	require.Equal(t, "Broward", rows[0].County)
	require.Equal(t, "63", rows[0].Age) // numeric Age tolerated
	require.Equal(t, "No", rows[0].TravelStatus)
	require.Equal(t, RawDate{Kind: DateEpochMillis, Value: "1584726312000"}, rows[0].Date)

	require.Equal(t, "29", rows[1].Age)
	require.Equal(t, "ny; italy", rows[1].TravelDetail)
	require.Equal(t, "", rows[2].Age) // null Age tolerated
	require.Equal(t, "Under investigation", rows[2].TravelStatus)
}

func TestArcGISFetchNoData(t *testing.T) {
	server := arcgisServer(t, 0, nil)

	src := NewArcGISSource(ArcGISConfig{URL: server.URL, PageDelay: time.Millisecond})

	_, err := src.Fetch(context.Background())
	require.ErrorIs(t, err, ErrNoData)
}

func TestArcGISFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	src := NewArcGISSource(ArcGISConfig{URL: server.URL, PageDelay: time.Millisecond})

	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "count probe")
}
