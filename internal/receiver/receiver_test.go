package receiver

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"github.com/RowanDark/postparam/internal/logging"
	"github.com/RowanDark/postparam/internal/observability/metrics"
)

func postForm(t *testing.T, h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDecode(t *testing.T) {
	h := NewHandler()

	tests := []struct {
		data string
		text string
	}{
		{data: "=G8sbGVa", text: "hello"},
		{data: "=Q=kImxvcFdsIG8sbGVS", text: "Hello, World!"},
		{data: "M5WW5LiM57y97aWg5L25", text: "你好，世界"},
		{data: "=A=YgJ+8", text: "\U0001F600"},
		{data: "", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			rec := postForm(t, h, "/decode", url.Values{"data": {tt.data}})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.text, decodeBody(t, rec)["text"])
		})
	}
}

func TestEncode(t *testing.T) {
	rec := postForm(t, NewHandler(), "/encode", url.Values{"text": {"hello world"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "=GQyb29gdG8sbGVa", decodeBody(t, rec)["data"])
}

func TestEncodeDecodeThroughForm(t *testing.T) {
	h := NewHandler(WithParamName("q"))

	for _, text := range []string{"a\r\nb", "Grüße", "?&=+/"} {
		rec := postForm(t, h, "/encode", url.Values{"text": {text}})
		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"]

		rec = postForm(t, h, "/decode", url.Values{"q": {data}})
		require.Equal(t, http.StatusOK, rec.Code)
		want := strings.ReplaceAll(text, "\r\n", "\n")
		assert.Equal(t, want, decodeBody(t, rec)["text"])
	}
}

func TestDecodeMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("data", "uWFT"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/decode", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	NewHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Man", decodeBody(t, rec)["text"])
}

func TestDecodeMultipartTooLarge(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("data", strings.Repeat("A", 1024)))
	require.NoError(t, mw.Close())

	reg := metrics.NewRegistry()
	req := httptest.NewRequest(http.MethodPost, "/decode", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	NewHandler(WithMaxBody(256), WithMetrics(reg)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request body too large", decodeBody(t, rec)["error"])
	assert.Equal(t, float64(1), reg.Rejections(logging.TransportHTTP, "decode_postparam", metrics.ReasonTooLarge))
}

func TestErrors(t *testing.T) {
	h := NewHandler(WithMaxBody(64))

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/decode?data=uWFT", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	})

	t.Run("missing field", func(t *testing.T) {
		rec := postForm(t, h, "/decode", url.Values{"other": {"uWFT"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "missing form field data")
	})

	t.Run("plain base64 rejected", func(t *testing.T) {
		rec := postForm(t, h, "/decode", url.Values{"data": {"aGVsbG8="}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["error"], "invalid base64")
	})

	t.Run("body too large", func(t *testing.T) {
		rec := postForm(t, h, "/decode", url.Values{"data": {strings.Repeat("A", 128)}})
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestDecodeIsAudited(t *testing.T) {
	buf := &bytes.Buffer{}
	audit, err := logging.NewAuditLogger("receiver", logging.WithoutStdout(), logging.WithWriter(buf))
	require.NoError(t, err)
	h := NewHandler(WithAuditLogger(audit))

	postForm(t, h, "/decode", url.Values{"data": {"=G8sbGVa"}})
	postForm(t, h, "/decode", url.Values{"data": {"TWF"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"event_type":"decode"`)
	assert.Contains(t, lines[0], `"transport":"http"`)
	assert.Contains(t, lines[1], `"event_type":"decode_rejected"`)
	assert.NotContains(t, buf.String(), "hello")
}

func TestServerSpeaksCleartextHTTP2(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHandler())
	ts := httptest.NewUnstartedServer(srv.Handler)
	ts.Start()
	t.Cleanup(ts.Close)

	client := &http.Client{Transport: &http2.Transport{
		AllowHTTP: true,
		DialTLS: func(network, addr string, _ *tls.Config) (net.Conn, error) {
			return net.Dial(network, addr)
		},
	}}

	resp, err := client.PostForm(ts.URL+"/decode", url.Values{"data": {"=G8sbGVa"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 2, resp.ProtoMajor)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "hello", body["text"])
}

func TestMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	h := NewHandler(WithMetrics(reg), WithMaxBody(64))

	postForm(t, h, "/decode", url.Values{"data": {"=G8sbGVa"}})
	postForm(t, h, "/decode", url.Values{"data": {"/w=="}})
	postForm(t, h, "/decode", url.Values{"data": {strings.Repeat("A", 128)}})

	assert.Equal(t, float64(3), reg.Requests(logging.TransportHTTP, "decode_postparam"))
	assert.Equal(t, float64(1), reg.Rejections(logging.TransportHTTP, "decode_postparam", metrics.ReasonTooLarge))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `postparam_codec_requests_total{transport="http",op="decode_postparam"} 3`)
}
