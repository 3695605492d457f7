package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingelab/pathreview/internal/application"
	appreview "github.com/jingelab/pathreview/internal/application/review"
	domain "github.com/jingelab/pathreview/internal/domain/review"
	"github.com/jingelab/pathreview/internal/infra/storage"
	"github.com/jingelab/pathreview/internal/middleware"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"pdf", "ocr", "pi", "pi_annotated"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	store, err := storage.NewFS(root)
	require.NoError(t, err)

	svc := &appreview.Service{
		Store: store,
		Locator: domain.NewLocator(domain.Prefixes{
			PDF:        "pdf/",
			OCR:        "ocr/",
			Indicators: "pi/",
			Annotated:  "pi_annotated/",
		}),
		Clock:      application.SystemClock{},
		StagingDir: t.TempDir(),
		PDFSuffix:  ".PDF",
		Timeout:    5 * time.Second,
	}

	handler := NewRouter(svc, nil, map[string]middleware.HealthChecker{"store": store})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, root
}

func writeArtifact(t *testing.T, root, key, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(key)), []byte(body), 0o644))
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestPDFFiles_ListsOnlyPDFSuffix(t *testing.T) {
	srv, root := newTestServer(t)
	writeArtifact(t, root, "pdf/doc2.PDF", "x")
	writeArtifact(t, root, "pdf/doc1.PDF", "x")
	writeArtifact(t, root, "pdf/readme.txt", "x")

	var names []string
	status := getJSON(t, srv.URL+"/pdf-files", &names)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"doc1.PDF", "doc2.PDF"}, names)
}

func TestPDFFiles_EmptyCollectionIsEmptyArray(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/pdf-files")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, buf.String())
}

func TestPDF_ServedInline(t *testing.T) {
	srv, root := newTestServer(t)
	writeArtifact(t, root, "pdf/doc1.PDF", "%PDF-1.4 fake body")

	resp, err := http.Get(srv.URL + "/pdf/doc1.PDF")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "inline", resp.Header.Get("Content-Disposition"))
}

func TestPDF_MissingIs404WithErrorBody(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	status := getJSON(t, srv.URL+"/pdf/missing.PDF", &body)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body["error"], "not found")
}

func TestOCR_ServedAsPlainText(t *testing.T) {
	srv, root := newTestServer(t)
	writeArtifact(t, root, "ocr/doc1.PDF", "SPECIMEN: skin, left forearm")

	resp, err := http.Get(srv.URL + "/ocr/doc1.PDF")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
}

func TestIndicators_ParsedAndReserialized(t *testing.T) {
	srv, root := newTestServer(t)
	writeArtifact(t, root, "pi/doc1.json", `{"grade":2}`)

	var record map[string]any
	status := getJSON(t, srv.URL+"/indicators/doc1.json", &record)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), record["grade"])
}

func TestIndicators_CorruptBlobIs400(t *testing.T) {
	srv, root := newTestServer(t)
	writeArtifact(t, root, "pi/doc1.json", `{"grade": `)

	var body map[string]string
	status := getJSON(t, srv.URL+"/indicators/doc1.json", &body)

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIndicators_TraversalFilenameIs400(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	status := getJSON(t, srv.URL+"/indicators/ev..il.json", &body)

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLoadComments_AbsentIs404WithEmptySentinel(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/load-comments/doc123.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"annotations": []}`, buf.String())
}

func postSave(t *testing.T, url string, payload string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url+"/save-edited-pi", "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestSave_FoldsAndRoundTrips(t *testing.T) {
	srv, root := newTestServer(t)
	writeArtifact(t, root, "pi/doc1.json", `{"grade": 2}`)

	resp, body := postSave(t, srv.URL, `{"filename": "doc1.json", "indicators": {"grade": {"comment": "borderline"}}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "File saved successfully", body["message"])

	var record map[string]any
	status := getJSON(t, srv.URL+"/load-comments/doc1.json", &record)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"value": float64(2), "comment": "borderline"}, record["grade"])
}

func TestSave_AnnotationsListShape(t *testing.T) {
	srv, root := newTestServer(t)
	writeArtifact(t, root, "pi/doc1.json", `{"margin": "clear"}`)

	resp, _ := postSave(t, srv.URL,
		`{"filename": "doc1.json", "annotations": [{"indicator": "margin", "original_value": "clear", "comment": "re-reviewed"}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var record map[string]any
	status := getJSON(t, srv.URL+"/load-comments/doc1.json", &record)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"value": "clear", "comment": "re-reviewed"}, record["margin"])
}

func TestSave_MalformedBodyIs400(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := postSave(t, srv.URL, `{"filename": `)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSave_MissingFilenameIs400(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := postSave(t, srv.URL, `{"indicators": {"grade": {"comment": "x"}}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSave_NoPriorStateIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postSave(t, srv.URL, `{"filename": "ghost.json", "indicators": {"grade": {"comment": "x"}}}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "prior indicator state missing")
}

// timeoutStore simulates a backing store whose calls run out of time.
type timeoutStore struct{}

func (timeoutStore) List(context.Context, string) ([]string, error) {
	return nil, context.DeadlineExceeded
}

func (timeoutStore) Stage(context.Context, string, string) (domain.Staged, error) {
	return domain.Staged{}, context.DeadlineExceeded
}

func (timeoutStore) Get(context.Context, string) ([]byte, error) {
	return nil, context.DeadlineExceeded
}

func (timeoutStore) Put(context.Context, string, []byte, string) error {
	return context.DeadlineExceeded
}

func TestStoreTimeoutIs504WithErrorBody(t *testing.T) {
	svc := &appreview.Service{
		Store: timeoutStore{},
		Locator: domain.NewLocator(domain.Prefixes{
			PDF:        "pdf/",
			OCR:        "ocr/",
			Indicators: "pi/",
			Annotated:  "pi_annotated/",
		}),
		Clock:      application.SystemClock{},
		StagingDir: t.TempDir(),
		PDFSuffix:  ".PDF",
	}
	srv := httptest.NewServer(NewRouter(svc, nil, nil))
	t.Cleanup(srv.Close)

	for _, path := range []string{"/pdf-files", "/pdf/doc1.PDF", "/indicators/doc1.json"} {
		var body map[string]string
		status := getJSON(t, srv.URL+path, &body)

		assert.Equal(t, http.StatusGatewayTimeout, status, path)
		assert.NotEmpty(t, body["error"], path)
	}
}

func TestLive_AnswersOK(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/live")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetrics_CountersAdvanceOnFetchAndSave(t *testing.T) {
	srv, root := newTestServer(t)
	writeArtifact(t, root, "pi/doc1.json", `{"grade": 2}`)

	var before map[string]any
	getJSON(t, srv.URL+"/metrics", &before)

	var record map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/indicators/doc1.json", &record))
	resp, _ := postSave(t, srv.URL, `{"filename": "doc1.json", "indicators": {"grade": {"comment": "borderline"}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var after map[string]any
	getJSON(t, srv.URL+"/metrics", &after)

	assert.Greater(t, after["artifacts_fetched"].(float64), before["artifacts_fetched"].(float64))
	assert.Greater(t, after["annotations_saved"].(float64), before["annotations_saved"].(float64))
}

func TestIndex_ServesUIShell(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestHealth_ReportsStoreCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	var health map[string]any
	status := getJSON(t, srv.URL+"/health", &health)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", health["status"])
}
