package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/actuallystonmai/site-content/internal/domain"
	"github.com/actuallystonmai/site-content/internal/handler"
	"github.com/actuallystonmai/site-content/internal/repository/memory"
	"github.com/actuallystonmai/site-content/internal/service"
	"github.com/actuallystonmai/site-content/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unavailableStore struct {
	*memory.Store
}

func (unavailableStore) InsertSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	return errors.New("database unavailable")
}

type server struct {
	*httptest.Server
	store *memory.Store
	dir   string
}

func newServer(t *testing.T, store service.Store) server {
	t.Helper()
	dir := t.TempDir()
	blobs, err := storage.New(storage.Config{BaseDir: dir})
	require.NoError(t, err)

	mem := memory.New()
	if store == nil {
		store = mem
	}
	h := handler.NewHandler(service.NewService(store, blobs, nil))
	srv := httptest.NewServer(Setup(h, blobs.Handler(), Options{
		CORSOrigins:    []string{"*"},
		RequestTimeout: 5 * time.Second,
	}))
	t.Cleanup(srv.Close)
	return server{Server: srv, store: mem, dir: dir}
}

func postImages(t *testing.T, url string, fields map[string]string, n int) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for i := range n {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="slide%d.jpg"`, i))
		h.Set("Content-Type", "image/jpeg")
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(fmt.Sprintf("jpeg-%d", i)))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/api/content", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func fileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestEmptyContentBeforeFirstPost(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/content")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.Empty(t, readJSON(t, resp))
}

func TestPostThenServeImage(t *testing.T) {
	srv := newServer(t, nil)

	resp := postImages(t, srv.URL, map[string]string{"slideTitles[]": "Hero"}, 1)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	snap := readJSON(t, resp)

	image := snap["heroSlides"].([]any)[0].(map[string]any)["image"].(string)
	require.True(t, strings.HasPrefix(image, "/uploads/"), image)

	img, err := http.Get(srv.URL + image)
	require.NoError(t, err)
	defer img.Body.Close()
	assert.Equal(t, http.StatusOK, img.StatusCode)
	data, err := io.ReadAll(img.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-0", string(data))

	missing, err := http.Get(srv.URL + "/uploads/nope.png")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestUploadServedAsDeclaredImageType(t *testing.T) {
	srv := newServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("slideTitles[]", "Hero"))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="images"; filename="evil.html"`)
	h.Set("Content-Type", "image/png")
	w, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = w.Write([]byte("<script>alert(1)</script>"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/content", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	image := readJSON(t, resp)["heroSlides"].([]any)[0].(map[string]any)["image"].(string)
	assert.True(t, strings.HasSuffix(image, ".png"), image)

	img, err := http.Get(srv.URL + image)
	require.NoError(t, err)
	defer img.Body.Close()
	assert.Equal(t, http.StatusOK, img.StatusCode)
	assert.Equal(t, "image/png", img.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", img.Header.Get("X-Content-Type-Options"))
}

func TestUploadsAreReadOnly(t *testing.T) {
	srv := newServer(t, nil)

	resp := postImages(t, srv.URL, map[string]string{"slideTitles[]": "Hero"}, 1)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	image := readJSON(t, resp)["heroSlides"].([]any)[0].(map[string]any)["image"].(string)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req, err := http.NewRequest(method, srv.URL+image, nil)
		require.NoError(t, err)
		got, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, got.StatusCode, method)
		assert.Equal(t, "Method not allowed", readJSON(t, got)["error"])
		got.Body.Close()
	}

	head, err := http.Head(srv.URL + image)
	require.NoError(t, err)
	head.Body.Close()
	assert.Equal(t, http.StatusOK, head.StatusCode)
	assert.Equal(t, 1, fileCount(t, srv.dir))
}

func TestLatestPostWins(t *testing.T) {
	srv := newServer(t, nil)

	first := postImages(t, srv.URL, map[string]string{"palpitesTitle": "one"}, 0)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	second := postImages(t, srv.URL, map[string]string{"palpitesTitle": "two"}, 0)
	require.Equal(t, http.StatusCreated, second.StatusCode)
	secondID := readJSON(t, second)["_id"]

	resp, err := http.Get(srv.URL + "/api/content")
	require.NoError(t, err)
	defer resp.Body.Close()
	latest := readJSON(t, resp)
	assert.Equal(t, secondID, latest["_id"])
	assert.Equal(t, "two", latest["palpitesTitle"])

	all, err := srv.store.ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRejectedUploadLeavesNothingBehind(t *testing.T) {
	srv := newServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="images"; filename="notes.txt"`)
	h.Set("Content-Type", "text/plain")
	w, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = w.Write([]byte("not an image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/content", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, fileCount(t, srv.dir))
	_, err = srv.store.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoContent)
}

func TestTooManyFiles(t *testing.T) {
	srv := newServer(t, nil)

	resp := postImages(t, srv.URL, nil, 11)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, fileCount(t, srv.dir))
	_, err := srv.store.LatestSnapshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoContent)
}

func TestStoreFailureCleansUp(t *testing.T) {
	srv := newServer(t, unavailableStore{memory.New()})

	resp := postImages(t, srv.URL, map[string]string{"slideTitles[]": "Hero"}, 3)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	out := readJSON(t, resp)
	assert.Equal(t, "Failed to save content", out["error"])
	assert.Contains(t, out["details"], "database unavailable")
	assert.Zero(t, fileCount(t, srv.dir))
}

func TestNotFoundIsJSON(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Not found", readJSON(t, resp)["error"])
}

func TestHealthEndpoint(t *testing.T) {
	srv := newServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := readJSON(t, resp)
	assert.Equal(t, "OK", out["status"])
	assert.Equal(t, "connected", out["database"])
}

func TestCORSPreflight(t *testing.T) {
	srv := newServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/content", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecovererReturnsJSON(t *testing.T) {
	h := recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}
