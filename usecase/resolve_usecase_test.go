package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"terastream/domain/dto"
	"terastream/domain/model"
	"terastream/domain/repository"
	"terastream/usecase"
)

// Mock implementations

type MockTerabox struct {
	mock.Mock
}

func (m *MockTerabox) FetchSharePage(ctx context.Context, surl, pwd, cookie string) (string, error) {
	args := m.Called(ctx, surl, pwd, cookie)
	return args.String(0), args.Error(1)
}

func (m *MockTerabox) ExtractToken(html string) string {
	args := m.Called(html)
	return args.String(0)
}

func (m *MockTerabox) ShareList(ctx context.Context, surl, token, cookie string) (*dto.ShareListResponse, error) {
	args := m.Called(ctx, surl, token, cookie)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ShareListResponse), args.Error(1)
}

func (m *MockTerabox) FetchManifest(ctx context.Context, manifestURL, cookie string) ([]byte, int, error) {
	args := m.Called(ctx, manifestURL, cookie)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.Int(1), args.Error(2)
}

type MockShareStore struct {
	mock.Mock
}

func (m *MockShareStore) Store(ctx context.Context, payload *model.SharePayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockShareStore) Fetch(ctx context.Context, surl string) (*model.SharePayload, error) {
	args := m.Called(ctx, surl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SharePayload), args.Error(1)
}

func (m *MockShareStore) FetchFile(ctx context.Context, fsID int64) (*model.MediaFile, error) {
	args := m.Called(ctx, fsID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MediaFile), args.Error(1)
}

type MockFastCache struct {
	mock.Mock
}

func (m *MockFastCache) Get(ctx context.Context, surl string) (*model.CanonicalRecord, error) {
	args := m.Called(ctx, surl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CanonicalRecord), args.Error(1)
}

func (m *MockFastCache) Put(ctx context.Context, surl string, rec *model.CanonicalRecord, ttl time.Duration) error {
	args := m.Called(ctx, surl, rec, ttl)
	return args.Error(0)
}

func (m *MockFastCache) Delete(ctx context.Context, surl string) error {
	args := m.Called(ctx, surl)
	return args.Error(0)
}

type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Get(ctx context.Context, surl, fingerprint string) (string, error) {
	args := m.Called(ctx, surl, fingerprint)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) Put(ctx context.Context, surl, fingerprint, token string, ttl time.Duration) error {
	args := m.Called(ctx, surl, fingerprint, token, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) Delete(ctx context.Context, surl, fingerprint string) error {
	args := m.Called(ctx, surl, fingerprint)
	return args.Error(0)
}

func upstreamListResponse() *dto.ShareListResponse {
	return &dto.ShareListResponse{
		Errno:   0,
		ShareID: 900100,
		Uk:      442211,
		Title:   "holiday",
		List: []dto.FileItem{
			{
				FsID:           555001,
				ServerFilename: "holiday.mp4",
				Size:           104857600,
				ServerMtime:    1700000000,
				Dlink:          "https://d.terabox.com/file/abc?sign=S1&timestamp=1700000001",
				Thumbs:         dto.Thumbs{Icon: "https://t/icon.jpg", URL3: "https://t/large.jpg"},
			},
		},
	}
}

func TestResolve_MissingSurl(t *testing.T) {
	mockUpstream := new(MockTerabox)
	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{})

	_, err := uc.Resolve(context.Background(), "", "", "", false, false)

	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.Status)
	require.Equal(t, []string{"surl"}, appErr.Required)
	// Validation must fail before any network call is attempted.
	mockUpstream.AssertNotCalled(t, "FetchSharePage")
	mockUpstream.AssertNotCalled(t, "ShareList")
}

func TestResolve_FastCacheHit(t *testing.T) {
	mockUpstream := new(MockTerabox)
	mockCache := new(MockFastCache)

	cached := &model.CanonicalRecord{FileName: "holiday.mp4", DownloadLink: "https://d/x", FsID: 555001}
	mockCache.On("Get", mock.Anything, "abc123").Return(cached, nil).Once()

	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{FastCache: mockCache})
	res, err := uc.Resolve(context.Background(), "abc123", "", "", false, false)

	require.NoError(t, err)
	require.Equal(t, usecase.SourceFastCache, res.Source)
	require.Same(t, cached, res.Data.(*model.CanonicalRecord))
	require.Empty(t, res.Note)
	mockUpstream.AssertNotCalled(t, "FetchSharePage")
	mockCache.AssertExpectations(t)
}

func TestResolve_FastCacheHitWithoutDownloadLink(t *testing.T) {
	mockUpstream := new(MockTerabox)
	mockCache := new(MockFastCache)

	cached := &model.CanonicalRecord{FileName: "holiday.mp4", FsID: 555001}
	mockCache.On("Get", mock.Anything, "abc123").Return(cached, nil).Once()

	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{FastCache: mockCache})
	res, err := uc.Resolve(context.Background(), "abc123", "", "", false, false)

	require.NoError(t, err)
	require.NotEmpty(t, res.Note)
}

func TestResolve_RawReadsDurableStore(t *testing.T) {
	mockUpstream := new(MockTerabox)
	mockStore := new(MockShareStore)
	mockCache := new(MockFastCache)

	stored := &model.SharePayload{
		Share: model.Share{Surl: "abc123", ShareID: 900100},
		Files: []model.MediaFile{{FsID: 555001}},
	}
	mockStore.On("Fetch", mock.Anything, "abc123").Return(stored, nil).Once()

	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{Store: mockStore, FastCache: mockCache})
	res, err := uc.Resolve(context.Background(), "abc123", "", "", false, true)

	require.NoError(t, err)
	require.Equal(t, usecase.SourceDurableStore, res.Source)
	require.Len(t, res.Data.(*model.SharePayload).Files, 1)
	// Raw mode never consults the fast cache.
	mockCache.AssertNotCalled(t, "Get")
	mockStore.AssertExpectations(t)
}

func TestResolve_LivePopulatesBothTiers(t *testing.T) {
	mockUpstream := new(MockTerabox)
	mockStore := new(MockShareStore)
	mockCache := new(MockFastCache)
	mockTokens := new(MockTokenStore)

	mockCache.On("Get", mock.Anything, "abc123").Return(nil, nil).Once()
	mockTokens.On("Get", mock.Anything, "abc123", "").Return("", nil).Once()
	mockUpstream.On("FetchSharePage", mock.Anything, "abc123", "", "").Return("page-html", nil).Once()
	mockUpstream.On("ExtractToken", "page-html").Return("tok999").Once()
	mockUpstream.On("ShareList", mock.Anything, "abc123", "tok999", "").Return(upstreamListResponse(), nil).Once()
	mockTokens.On("Put", mock.Anything, "abc123", "", "tok999", mock.Anything).Return(nil).Once()
	mockStore.On("Store", mock.Anything, mock.Anything).Return(nil).Once()
	mockCache.On("Put", mock.Anything, "abc123", mock.Anything, mock.Anything).Return(nil).Once()

	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{
		Store: mockStore, FastCache: mockCache, Tokens: mockTokens,
		OriginURL: "https://www.terabox.com",
	})
	res, err := uc.Resolve(context.Background(), "abc123", "", "", false, false)

	require.NoError(t, err)
	require.Equal(t, usecase.SourceLive, res.Source)

	rec := res.Data.(*model.CanonicalRecord)
	require.Equal(t, "holiday.mp4", rec.FileName)
	require.Equal(t, int64(555001), rec.FsID)
	require.Equal(t, int64(442211), rec.Uk)
	require.Equal(t, "https://www.terabox.com/s/1abc123", rec.OriginalURL)
	// Largest thumbnail wins.
	require.Equal(t, "https://t/large.jpg", rec.Thumbnail)

	mockUpstream.AssertExpectations(t)
	mockStore.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockTokens.AssertExpectations(t)
}

func TestResolve_RefreshSkipsCaches(t *testing.T) {
	mockUpstream := new(MockTerabox)
	mockCache := new(MockFastCache)

	mockUpstream.On("FetchSharePage", mock.Anything, "abc123", "", "").Return("html", nil).Once()
	mockUpstream.On("ExtractToken", "html").Return("tok").Once()
	mockUpstream.On("ShareList", mock.Anything, "abc123", "tok", "").Return(upstreamListResponse(), nil).Once()
	mockCache.On("Put", mock.Anything, "abc123", mock.Anything, mock.Anything).Return(nil).Once()

	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{FastCache: mockCache})
	res, err := uc.Resolve(context.Background(), "abc123", "", "", true, false)

	require.NoError(t, err)
	require.Equal(t, usecase.SourceLive, res.Source)
	mockCache.AssertNotCalled(t, "Get")
}

func TestResolve_StaleTokenFallsBackToScrape(t *testing.T) {
	mockUpstream := new(MockTerabox)
	mockTokens := new(MockTokenStore)

	mockTokens.On("Get", mock.Anything, "abc123", "").Return("stale", nil).Once()
	mockUpstream.On("ShareList", mock.Anything, "abc123", "stale", "").Return(nil, repository.ErrUpstreamAuth).Once()
	mockTokens.On("Delete", mock.Anything, "abc123", "").Return(nil).Once()
	mockUpstream.On("FetchSharePage", mock.Anything, "abc123", "", "").Return("html", nil).Once()
	mockUpstream.On("ExtractToken", "html").Return("fresh").Once()
	mockTokens.On("Put", mock.Anything, "abc123", "", "fresh", mock.Anything).Return(nil).Once()
	mockUpstream.On("ShareList", mock.Anything, "abc123", "fresh", "").Return(upstreamListResponse(), nil).Once()

	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{Tokens: mockTokens})
	res, err := uc.Resolve(context.Background(), "abc123", "", "", false, false)

	require.NoError(t, err)
	require.Equal(t, usecase.SourceLive, res.Source)
	mockUpstream.AssertExpectations(t)
	mockTokens.AssertExpectations(t)
}

func TestResolve_FreshTokenStillRejectedSurfacesForbidden(t *testing.T) {
	mockUpstream := new(MockTerabox)

	mockUpstream.On("FetchSharePage", mock.Anything, "abc123", "", "").Return("html", nil).Once()
	mockUpstream.On("ExtractToken", "html").Return("fresh").Once()
	mockUpstream.On("ShareList", mock.Anything, "abc123", "fresh", "").Return(nil, repository.ErrUpstreamAuth).Once()

	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{})
	_, err := uc.Resolve(context.Background(), "abc123", "", "", false, false)

	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 403, appErr.Status)
	require.Equal(t, "token_extraction_failed", appErr.Code)
	// No second scrape after a rejection of a freshly scraped token.
	mockUpstream.AssertNumberOfCalls(t, "FetchSharePage", 1)
}

func TestResolve_TokenMissingFromPage(t *testing.T) {
	mockUpstream := new(MockTerabox)

	mockUpstream.On("FetchSharePage", mock.Anything, "abc123", "", "").Return("no token", nil).Once()
	mockUpstream.On("ExtractToken", "no token").Return("").Once()

	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{})
	_, err := uc.Resolve(context.Background(), "abc123", "", "", false, false)

	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "token_extraction_failed", appErr.Code)
	mockUpstream.AssertNotCalled(t, "ShareList")
}

func TestResolve_EmptyListIsBadGateway(t *testing.T) {
	mockUpstream := new(MockTerabox)

	mockUpstream.On("FetchSharePage", mock.Anything, "abc123", "", "").Return("html", nil).Once()
	mockUpstream.On("ExtractToken", "html").Return("tok").Once()
	mockUpstream.On("ShareList", mock.Anything, "abc123", "tok", "").
		Return(&dto.ShareListResponse{Errno: 0}, nil).Once()

	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{})
	_, err := uc.Resolve(context.Background(), "abc123", "", "", false, false)

	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 502, appErr.Status)
	require.Equal(t, "upstream_empty_list", appErr.Code)
}

func TestResolve_StoreFailureDoesNotAbortResponse(t *testing.T) {
	mockUpstream := new(MockTerabox)
	mockStore := new(MockShareStore)

	mockUpstream.On("FetchSharePage", mock.Anything, "abc123", "", "").Return("html", nil).Once()
	mockUpstream.On("ExtractToken", "html").Return("tok").Once()
	mockUpstream.On("ShareList", mock.Anything, "abc123", "tok", "").Return(upstreamListResponse(), nil).Once()
	mockStore.On("Store", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	uc := usecase.NewResolveUsecase(mockUpstream, usecase.ResolveConfig{Store: mockStore})
	res, err := uc.Resolve(context.Background(), "abc123", "", "", false, false)

	require.NoError(t, err)
	require.Equal(t, usecase.SourceLive, res.Source)
}

func TestLookup_NotFound(t *testing.T) {
	mockStore := new(MockShareStore)
	mockStore.On("Fetch", mock.Anything, "missing").Return(nil, nil).Once()

	uc := usecase.NewResolveUsecase(new(MockTerabox), usecase.ResolveConfig{Store: mockStore})
	_, err := uc.Lookup(context.Background(), "missing")

	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.Status)
}

func TestPurge_WithoutCacheIsUnavailable(t *testing.T) {
	uc := usecase.NewResolveUsecase(new(MockTerabox), usecase.ResolveConfig{})
	err := uc.Purge(context.Background(), "abc123")

	var appErr *model.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 503, appErr.Status)
}
