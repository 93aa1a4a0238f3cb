package container

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tag-detector/internal/config"
	"go-tag-detector/pkg/models"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Host:               "127.0.0.1",
		Port:               "8080",
		RequestTimeout:     5 * time.Second,
		ImageFetchTimeout:  5 * time.Second,
		AnalysisTimeout:    5 * time.Second,
		MaxRequestBodySize: 1024 * 1024,
		TagProfile:         "fast",
		TagFamily:          "tag36h11",
		TagThreads:         1,
		MaxHammingDistance: -1,
		RemoveDuplicates:   true,
		DefaultTagSize:     0.1,
		Tags: &config.TagLayout{StandaloneTags: []config.StandaloneTag{
			{ID: 0, Size: 0.05, Name: "tag_0"},
		}},
		PublishTopic:  "tag_detections",
		HistoryDBPath: filepath.Join(t.TempDir(), "history.db"),
		HistoryLimit:  10,
	}
}

func TestDetectorOptions(t *testing.T) {
	cfg := testConfig(t)
	opts, err := DetectorOptions(cfg)
	require.NoError(t, err)

	assert.Equal(t, "tag36h11", opts.Family)
	assert.Equal(t, 2.0, opts.Decimate)
	assert.Equal(t, 0, opts.MaxHammingDistance)
	assert.Equal(t, 1, opts.Threads)
	require.Len(t, opts.StandaloneTags, 1)
	assert.Equal(t, 0.05, opts.StandaloneTags[0].Size)

	cfg.TagProfile = "accurate"
	cfg.TagDecimate = 3
	cfg.MaxHammingDistance = 2
	opts, err = DetectorOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3.0, opts.Decimate)
	assert.Equal(t, 2, opts.MaxHammingDistance)

	cfg.TagProfile = "turbo"
	_, err = DetectorOptions(cfg)
	assert.Error(t, err)
}

func TestNewContainer_WiresRoutes(t *testing.T) {
	c, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	for _, path := range []string{"/health", "/metrics", "/tag_detections/history"} {
		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func analyze(t *testing.T, c *Container, request models.AnalyzeSingleImageRequest) (int, models.AnalyzeSingleImageResponse) {
	t.Helper()
	body, err := json.Marshal(request)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/single_image_tag_detection", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	var resp models.AnalyzeSingleImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestNewContainer_MissingImage(t *testing.T) {
	c, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	code, resp := analyze(t, c, models.AnalyzeSingleImageRequest{
		FullPathWhereToGetImage:  filepath.Join(t.TempDir(), "missing.png"),
		FullPathWhereToSaveImage: filepath.Join(t.TempDir(), "out.png"),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.False(t, resp.Success)
}

func TestNewContainer_RestrictsImageHosts(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowedImageHosts = []string{"images.example.com"}
	c, err := NewContainer(cfg)
	require.NoError(t, err)
	defer c.Close()

	// the host check fails before any fetch is attempted
	code, resp := analyze(t, c, models.AnalyzeSingleImageRequest{
		FullPathWhereToGetImage:  "http://other.example.com/in.png",
		FullPathWhereToSaveImage: filepath.Join(t.TempDir(), "out.png"),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.False(t, resp.Success)
}

func TestNewContainer_MetricsReportDetectorPool(t *testing.T) {
	c, err := NewContainer(testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"detector_pool"`)
}

func TestStorageOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.AzureAccountName = "acct"

	opts := StorageOptions(cfg)
	assert.Equal(t, cfg.ImageFetchTimeout, opts.FetchTimeout)
	assert.Empty(t, opts.AzureAccountName, "partial azure credentials are not passed on")

	cfg.AzureAccountKey = "a2V5"
	opts = StorageOptions(cfg)
	assert.Equal(t, "acct", opts.AzureAccountName)
	assert.Equal(t, "a2V5", opts.AzureAccountKey)
}

func TestNewContainer_InvalidFamily(t *testing.T) {
	cfg := testConfig(t)
	cfg.TagFamily = "tagCircle21h7"

	_, err := NewContainer(cfg)
	assert.Error(t, err)
}
