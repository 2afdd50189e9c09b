package files

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileservices/internal/storage"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *Service, storage.Backend) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := storage.NewMemory()
	svc := newTestService(t, store)

	r := gin.New()
	RegisterRoutes(r, NewHandler(svc))
	return r, svc, store
}

func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func doUpload(t *testing.T, r http.Handler, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", filename, contentType, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func doRequest(r http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

type uploadResponse struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	URL      string `json:"url"`
	IsImage  bool   `json:"isImage"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body=%s", rr.Body.String())
	return v
}

func TestUploadEndpoint_Image(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	rr := doUpload(t, r, "a.png", "image/png", []byte("\x89PNG\r\n"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decode[uploadResponse](t, rr)
	assert.Equal(t, "File uploaded successfully", resp.Message)
	assert.Equal(t, "1700000000123-a.png", resp.Filename)
	assert.True(t, resp.IsImage)
	assert.Equal(t, "/public/images/1700000000123-a.png", resp.URL)
	assert.Equal(t, "memory://images/1700000000123-a.png", resp.Path)

	img := doRequest(r, http.MethodGet, "/images/"+resp.Filename)
	require.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "\x89PNG\r\n", img.Body.String())
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))

	static := doRequest(r, http.MethodGet, resp.URL)
	require.Equal(t, http.StatusOK, static.Code)
	assert.Equal(t, "\x89PNG\r\n", static.Body.String())
}

func TestUploadEndpoint_Generic(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	rr := doUpload(t, r, "a.txt", "text/plain", []byte("plain text"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decode[uploadResponse](t, rr)
	assert.False(t, resp.IsImage)
	assert.Equal(t, "/download/1700000000123-a.txt", resp.URL)

	dl := doRequest(r, http.MethodGet, resp.URL)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "plain text", dl.Body.String())
	assert.Equal(t, `attachment; filename="1700000000123-a.txt"`, dl.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(dl.Header().Get("Content-Type"), "text/plain"))
}

func TestUploadEndpoint_TraversalNameIsSanitized(t *testing.T) {
	r, _, store := setupTestRouter(t)

	rr := doUpload(t, r, "../../etc/passwd", "text/plain", []byte("root:x"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	resp := decode[uploadResponse](t, rr)
	assert.Equal(t, "1700000000123-passwd", resp.Filename)

	ok, err := store.Exists(context.Background(), storage.KindUpload, resp.Filename)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUploadEndpoint_MissingFile(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	body, ct := multipartBody(t, "other", "a.txt", "text/plain", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No file uploaded", decode[map[string]string](t, rr)["error"])

	rr = doRequest(r, http.MethodPost, "/upload")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadEndpoint_TooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(storage.NewMemory(), nil, nil, 8)
	r := gin.New()
	RegisterRoutes(r, NewHandler(svc))

	rr := doUpload(t, r, "big.bin", "application/octet-stream", bytes.Repeat([]byte("x"), 64))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, rr.Body.String())
}

func TestListEndpoints_Empty(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	rr := doRequest(r, http.MethodGet, "/files")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"uploads":[],"images":[]}`, rr.Body.String())

	rr = doRequest(r, http.MethodGet, "/images")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"images":[]}`, rr.Body.String())
}

func TestListEndpoints_AfterUploads(t *testing.T) {
	r, _, _ := setupTestRouter(t)
	doUpload(t, r, "a.png", "image/png", []byte("p"))
	doUpload(t, r, "b.txt", "text/plain", []byte("t"))

	rr := doRequest(r, http.MethodGet, "/files")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"uploads":["1700000000123-b.txt"],"images":["1700000000123-a.png"]}`, rr.Body.String())

	rr = doRequest(r, http.MethodGet, "/images")
	assert.JSONEq(t, `{"images":["1700000000123-a.png"]}`, rr.Body.String())
}

func TestRetrieval_AsymmetricLookup(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	doc := decode[uploadResponse](t, doUpload(t, r, "doc.txt", "text/plain", []byte("d")))
	img := decode[uploadResponse](t, doUpload(t, r, "pic.png", "image/png", []byte("p")))

	rr := doRequest(r, http.MethodGet, "/images/"+doc.Filename)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Image not found", decode[map[string]string](t, rr)["error"])

	rr = doRequest(r, http.MethodGet, "/download/"+img.Filename)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "File not found", decode[map[string]string](t, rr)["error"])

	rr = doRequest(r, http.MethodGet, "/public/images/"+doc.Filename)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRetrieval_InvalidFilename(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	rr := doRequest(r, http.MethodGet, "/images/..")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(r, http.MethodGet, "/download/..")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(r, http.MethodGet, "/public/images/nested/escape.png")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteEndpoint_TieBreakAndMessages(t *testing.T) {
	r, _, store := setupTestRouter(t)
	ctx := context.Background()

	const name = "1700000000123-dup.png"
	_, err := store.Put(ctx, storage.KindUpload, name, strings.NewReader("generic"))
	require.NoError(t, err)
	_, err = store.Put(ctx, storage.KindImage, name, strings.NewReader("image"))
	require.NoError(t, err)

	rr := doRequest(r, http.MethodDelete, "/files/"+name)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "File deleted successfully", decode[map[string]string](t, rr)["message"])

	img := doRequest(r, http.MethodGet, "/images/"+name)
	require.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image", img.Body.String())

	rr = doRequest(r, http.MethodDelete, "/files/"+name)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Image deleted successfully", decode[map[string]string](t, rr)["message"])

	for i := 0; i < 2; i++ {
		rr = doRequest(r, http.MethodDelete, "/files/"+name)
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "File not found", decode[map[string]string](t, rr)["error"])
	}
}

func TestStaticImage_Head(t *testing.T) {
	r, _, _ := setupTestRouter(t)
	img := decode[uploadResponse](t, doUpload(t, r, "h.gif", "image/gif", []byte("GIF89a")))

	rr := doRequest(r, http.MethodHead, img.URL)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "6", rr.Header().Get("Content-Length"))
	assert.Equal(t, "image/gif", rr.Header().Get("Content-Type"))
}

func TestEventsEndpoint(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	rr := doRequest(r, http.MethodGet, "/events")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"events":[]}`, rr.Body.String())

	rr = doRequest(r, http.MethodGet, "/events?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "image/png", contentTypeFor("x.PNG"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("1700000000123-"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("archive.unknownext"))
}
