package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"terastream/domain/dto"
	"terastream/domain/model"
	"terastream/infrastructure/metrics"
	httpHandler "terastream/interfaces/http"
	"terastream/usecase"
)

type fakeResolveUsecase struct {
	resolveRes *dto.ResolveResponse
	resolveErr error

	gotSurl    string
	gotRefresh bool
	gotRaw     bool
}

func (f *fakeResolveUsecase) Resolve(ctx context.Context, surl, pwd, cookie string, refresh, raw bool) (*dto.ResolveResponse, error) {
	f.gotSurl, f.gotRefresh, f.gotRaw = surl, refresh, raw
	return f.resolveRes, f.resolveErr
}

func (f *fakeResolveUsecase) Lookup(ctx context.Context, surl string) (*model.SharePayload, error) {
	return nil, model.NewNotFoundError("share " + surl)
}

func (f *fakeResolveUsecase) LookupFile(ctx context.Context, fsID int64) (*model.MediaFile, error) {
	return &model.MediaFile{FsID: fsID}, nil
}

func (f *fakeResolveUsecase) Purge(ctx context.Context, surl string) error { return nil }

func (f *fakeResolveUsecase) History(ctx context.Context, limit int) ([]model.ResolveEvent, error) {
	return nil, nil
}

func newResolveRouter(fake *fakeResolveUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := httpHandler.NewResolveHandler(fake, metrics.NoopMetrics{})
	router := gin.New()
	router.GET("/api/resolve", handler.Resolve)
	router.GET("/api/lookup", handler.Lookup)
	router.GET("/api/file", handler.File)
	return router
}

func TestResolveEndpoint_Envelope(t *testing.T) {
	fake := &fakeResolveUsecase{
		resolveRes: &dto.ResolveResponse{
			Source: usecase.SourceFastCache,
			Data:   &model.CanonicalRecord{FileName: "holiday.mp4", FsID: 555001},
		},
	}
	router := newResolveRouter(fake)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/resolve?surl=abc123&refresh=1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "abc123", fake.gotSurl)
	require.True(t, fake.gotRefresh)
	require.False(t, fake.gotRaw)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "fast-cache", body["source"])
	require.Equal(t, "holiday.mp4", body["data"].(map[string]interface{})["file_name"])
}

func TestResolveEndpoint_MissingSurl(t *testing.T) {
	fake := &fakeResolveUsecase{resolveErr: model.NewMissingParamError("surl")}
	router := newResolveRouter(fake)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/resolve", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "missing_parameter", body.Code)
	require.Equal(t, []string{"surl"}, body.Required)
}

func TestLookupEndpoint_NotFound(t *testing.T) {
	router := newResolveRouter(&fakeResolveUsecase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/lookup?surl=missing", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "not_found")
}

func TestFileEndpoint_InvalidID(t *testing.T) {
	router := newResolveRouter(&fakeResolveUsecase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/file?fs_id=notanumber", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
