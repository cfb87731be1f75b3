package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-assetsync/internal/api"
	v1 "github.com/stacklok/toolhive-assetsync/internal/api/v1"
	"github.com/stacklok/toolhive-assetsync/internal/checker"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/service"
	"github.com/stacklok/toolhive-assetsync/internal/service/mocks"
	"github.com/stacklok/toolhive-assetsync/internal/status"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
	"github.com/stacklok/toolhive-assetsync/internal/versions"
)

var enCards = naming.ResourceKey{Locale: "en", Type: "cards"}

func newServer(t *testing.T, opts ...api.ServerOption) (http.Handler, *mocks.MockAssetService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockSvc := mocks.NewMockAssetService(ctrl)
	return api.NewServer(mockSvc, opts...), mockSvc
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	// No expectations needed - health check doesn't call service
	server, _ := newServer(t)

	rr := serve(t, server, "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		setupMock      func(*mocks.MockAssetService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "service ready",
			setupMock: func(m *mocks.MockAssetService) {
				m.EXPECT().CheckReadiness(gomock.Any()).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "ready",
		},
		{
			name: "service not ready",
			setupMock: func(m *mocks.MockAssetService) {
				m.EXPECT().CheckReadiness(gomock.Any()).Return(fmt.Errorf("engine closed"))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "engine closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server, mockSvc := newServer(t)
			tt.setupMock(mockSvc)

			rr := serve(t, server, "/readiness")

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()
	server, _ := newServer(t)

	rr := serve(t, server, "/version")
	require.Equal(t, http.StatusOK, rr.Code)

	var info versions.VersionInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &info))
	assert.Equal(t, versions.GetVersionInfo().GoVersion, info.GoVersion)
	assert.NotEmpty(t, info.Platform)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	server, _ := newServer(t)
	assert.Equal(t, http.StatusNotFound, serve(t, server, "/metrics").Code)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	server, _ = newServer(t, api.WithMetricsHandler(metrics))
	rr := serve(t, server, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "# metrics", rr.Body.String())
}

func TestMiddlewaresAreApplied(t *testing.T) {
	t.Parallel()

	called := false
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}
	server, _ := newServer(t, api.WithMiddlewares(mw, api.LoggingMiddleware))

	rr := serve(t, server, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, called)
}

func TestListResources(t *testing.T) {
	t.Parallel()

	updated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	resources := []*service.ResourceInfo{
		{Locale: "en", Type: "cards", Branch: "en/cards", Downloaded: true, Revision: "abc", UpdatedAt: &updated},
		{Locale: "jp", Type: "movie", Branch: "jp/movie", Watch: &status.SyncStatus{Phase: status.SyncPhasePending}},
	}

	t.Run("all", func(t *testing.T) {
		t.Parallel()
		server, mockSvc := newServer(t)
		mockSvc.EXPECT().ListResources(gomock.Any()).Return(resources, nil)

		rr := serve(t, server, "/api/v1/resources")
		require.Equal(t, http.StatusOK, rr.Code)

		var resp v1.ResourceListResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
		require.Len(t, resp.Resources, 2)
		assert.Equal(t, "abc", resp.Resources[0].Revision)
		assert.Equal(t, status.SyncPhasePending, resp.Resources[1].Watch.Phase)
	})

	t.Run("filtered", func(t *testing.T) {
		t.Parallel()
		server, mockSvc := newServer(t)
		mockSvc.EXPECT().ListResources(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, opts ...service.Option[service.ListResourcesOptions]) ([]*service.ResourceInfo, error) {
				applied := &service.ListResourcesOptions{}
				for _, opt := range opts {
					require.NoError(t, opt(applied))
				}
				assert.Equal(t, "en", applied.Locale)
				assert.Equal(t, "cards", applied.Type)
				return resources[:1], nil
			})

		rr := serve(t, server, "/api/v1/resources?locale=en&type=cards")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"count":1`)
	})

	t.Run("service error", func(t *testing.T) {
		t.Parallel()
		server, mockSvc := newServer(t)
		mockSvc.EXPECT().ListResources(gomock.Any()).Return(nil, syncerr.ErrNotStarted)

		rr := serve(t, server, "/api/v1/resources")
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestGetResource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		path           string
		setupMock      func(*mocks.MockAssetService)
		expectedStatus int
	}{
		{
			name: "found",
			path: "/api/v1/resources/en/cards",
			setupMock: func(m *mocks.MockAssetService) {
				m.EXPECT().GetResource(gomock.Any(), enCards).
					Return(&service.ResourceInfo{Locale: "en", Type: "cards", Downloaded: true}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "not found",
			path: "/api/v1/resources/fr/sounds",
			setupMock: func(m *mocks.MockAssetService) {
				m.EXPECT().GetResource(gomock.Any(), naming.ResourceKey{Locale: "fr", Type: "sounds"}).
					Return(nil, fmt.Errorf("%w: fr/sounds", service.ErrResourceNotFound))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "invalid key",
			path:           "/api/v1/resources/.git/cards",
			setupMock:      func(*mocks.MockAssetService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server, mockSvc := newServer(t)
			tt.setupMock(mockSvc)

			rr := serve(t, server, tt.path)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestCheckForUpdate(t *testing.T) {
	t.Parallel()

	t.Run("update available", func(t *testing.T) {
		t.Parallel()
		server, mockSvc := newServer(t)
		mockSvc.EXPECT().CheckForUpdate(gomock.Any(), enCards).
			Return(&checker.Result{IsUpdateAvailable: true, LocalSHA: "aaa", RemoteSHA: "bbb"}, nil)

		rr := serve(t, server, "/api/v1/resources/en/cards/check")
		require.Equal(t, http.StatusOK, rr.Code)

		var resp v1.UpdateCheckResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, v1.UpdateCheckResponse{
			Locale:          "en",
			Type:            "cards",
			UpdateAvailable: true,
			LocalRevision:   "aaa",
			RemoteRevision:  "bbb",
		}, resp)
	})

	t.Run("missing branch", func(t *testing.T) {
		t.Parallel()
		server, mockSvc := newServer(t)
		mockSvc.EXPECT().CheckForUpdate(gomock.Any(), enCards).
			Return(nil, syncerr.New(syncerr.CodeRefNotFound, "check", "en/cards", "branch not found"))

		rr := serve(t, server, "/api/v1/resources/en/cards/check")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), `"code":"ref-not-found"`)
	})

	t.Run("remote unreachable", func(t *testing.T) {
		t.Parallel()
		server, mockSvc := newServer(t)
		mockSvc.EXPECT().CheckForUpdate(gomock.Any(), enCards).
			Return(nil, syncerr.New(syncerr.CodeNetwork, "check", "en/cards", "connection refused"))

		rr := serve(t, server, "/api/v1/resources/en/cards/check")
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}

func TestFileHash(t *testing.T) {
	t.Parallel()

	server, mockSvc := newServer(t)
	dgst := digest.FromString(`{"id":1}`)
	mockSvc.EXPECT().FileHash(gomock.Any(), enCards, "res/card_001.json").Return(dgst, nil)

	rr := serve(t, server, "/api/v1/resources/en/cards/hash/res/card_001.json")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp v1.FileHashResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "res/card_001.json", resp.Path)
	assert.Equal(t, dgst.String(), resp.Digest)
}

func TestFileData(t *testing.T) {
	t.Parallel()

	t.Run("json file", func(t *testing.T) {
		t.Parallel()
		server, mockSvc := newServer(t)
		mockSvc.EXPECT().FileData(gomock.Any(), enCards, "card_001.json").Return([]byte(`{"id":1}`), nil)

		rr := serve(t, server, "/api/v1/resources/en/cards/files/card_001.json")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, `{"id":1}`, rr.Body.String())
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	})

	t.Run("range request", func(t *testing.T) {
		t.Parallel()
		server, mockSvc := newServer(t)
		mockSvc.EXPECT().FileData(gomock.Any(), enCards, "intro.bin").Return([]byte("0123456789"), nil)

		req, err := http.NewRequest(http.MethodGet, "/api/v1/resources/en/cards/files/intro.bin", nil)
		require.NoError(t, err)
		req.Header.Set("Range", "bytes=2-4")
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusPartialContent, rr.Code)
		assert.Equal(t, "234", rr.Body.String())
	})

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()
		server, _ := newServer(t)

		rr := serve(t, server, "/api/v1/resources/en/cards/files/")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		server, mockSvc := newServer(t)
		mockSvc.EXPECT().FileData(gomock.Any(), enCards, "nope.json").
			Return(nil, syncerr.New(syncerr.CodeNotFound, "read", "en/cards", "file not found"))

		rr := serve(t, server, "/api/v1/resources/en/cards/files/nope.json")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestListDirectory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		path        string
		dir         string
		entries     []string
		wantEntries []string
	}{
		{
			name:        "root without slash",
			path:        "/api/v1/resources/en/cards/tree",
			dir:         "",
			entries:     []string{"card_001.json", "res"},
			wantEntries: []string{"card_001.json", "res"},
		},
		{
			name:        "root with slash",
			path:        "/api/v1/resources/en/cards/tree/",
			dir:         "",
			entries:     []string{"card_001.json", "res"},
			wantEntries: []string{"card_001.json", "res"},
		},
		{
			name:        "empty directory",
			path:        "/api/v1/resources/en/cards/tree/res/empty",
			dir:         "res/empty",
			entries:     nil,
			wantEntries: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server, mockSvc := newServer(t)
			mockSvc.EXPECT().ListDirectory(gomock.Any(), enCards, tt.dir).Return(tt.entries, nil)

			rr := serve(t, server, tt.path)
			require.Equal(t, http.StatusOK, rr.Code)

			var resp v1.DirectoryResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.dir, resp.Path)
			assert.Equal(t, tt.wantEntries, resp.Entries)
		})
	}
}
