package terabox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"terastream/domain/repository"
)

func newTestClient(host string) *Client {
	return NewClient(Config{
		Host:      host,
		RetryBase: time.Millisecond,
		Timeout:   2 * time.Second,
	})
}

func TestShareList_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int
	statuses := []int{500, 500, 200}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := statuses[calls]
		calls++
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"errno":0,"share_id":7,"uk":42,"list":[{"fs_id":1,"server_filename":"a.mp4","size":10}]}`))
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	resp, err := client.ShareList(context.Background(), "abc", "token", "")
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Len(t, resp.List, 1)
	require.Equal(t, int64(1), resp.List[0].FsID)
}

func TestShareList_RetryBudgetExhausted(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ShareList(context.Background(), "abc", "token", "")
	require.Error(t, err)
	// Budget of 2 retries means exactly 3 attempts, never a 4th.
	require.Equal(t, 3, calls)
}

func TestShareList_AuthStatusMapsToErrUpstreamAuth(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ShareList(context.Background(), "abc", "stale", "")
	require.ErrorIs(t, err, repository.ErrUpstreamAuth)
	// 403 is not transient; no retries.
	require.Equal(t, 1, calls)
}

func TestShareList_ErrnoAuthRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errno":-6}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ShareList(context.Background(), "abc", "stale", "")
	require.ErrorIs(t, err, repository.ErrUpstreamAuth)
}

func TestShareList_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>sign in</html>"))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ShareList(context.Background(), "abc", "token", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "non-JSON")
}

func TestShareList_SendsFixedQueryParameters(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"errno":0,"list":[{"fs_id":1}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.ShareList(context.Background(), "xyz", "tok123", "")
	require.NoError(t, err)
	require.Equal(t, "250528", gotQuery["app_id"][0])
	require.Equal(t, "dubox", gotQuery["channel"][0])
	require.Equal(t, "tok123", gotQuery["jsToken"][0])
	require.Equal(t, "1xyz", gotQuery["shorturl"][0])
}

func TestFetchSharePage_NoRetryOnNotFound(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.FetchSharePage(context.Background(), "gone", "", "")
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestFetchManifest_SingleAttempt(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, status, err := client.FetchManifest(context.Background(), srv.URL+"/share/streaming", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, status)
	require.Equal(t, 1, calls)
}
