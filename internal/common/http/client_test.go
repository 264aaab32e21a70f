package http

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/common/logger"
)

type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) AccessToken(context.Context) (string, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, srv *httptest.Server, tokens TokenSource) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second}, tokens, logger.NewTestLogger(t), nil)
	require.NoError(t, err)
	return c
}

func TestClient_Do_AttachesBearerTokenAtRequestTime(t *testing.T) {
	var gotAuth []string
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, "/api/deals/", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	tokens := &staticTokens{}
	c := newTestClient(t, srv, tokens)

	_, err := c.Do(context.Background(), Request{Operation: "listDeals", Method: "GET", Path: "deals/"})
	require.NoError(t, err)

	tokens.token = "abc"
	body, err := c.Do(context.Background(), Request{Operation: "listDeals", Method: "GET", Path: "deals/"})
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(body))

	assert.Equal(t, []string{"", "Bearer abc"}, gotAuth)
}

func TestClient_Do_MapsStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode errors.ErrorCode
		wantHook int32
	}{
		{name: "unauthorized fires hook", status: 401, wantCode: errors.ErrCodeUnauthorized, wantHook: 1},
		{name: "not found", status: 404, wantCode: errors.ErrCodeNotFound},
		{name: "server error", status: 500, wantCode: errors.ErrCodeAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"detail":"nope"}`))
			}))
			defer srv.Close()

			c := newTestClient(t, srv, nil)
			var hooks int32
			c.OnUnauthorized(func() { atomic.AddInt32(&hooks, 1) })

			_, err := c.Do(context.Background(), Request{Operation: "getDeal", Method: "GET", Path: "deals/1/"})
			require.Error(t, err)

			stdErr := errors.AsStandardError(err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.status, stdErr.StatusCode)
			assert.Contains(t, stdErr.Details, "nope")
			assert.Equal(t, tt.wantHook, atomic.LoadInt32(&hooks))
		})
	}
}

func TestClient_Do_TokenStoreFailureAbortsRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, &staticTokens{err: stderrors.New("disk gone")})
	_, err := c.Do(context.Background(), Request{Operation: "currentUser", Method: "GET", Path: "auth/me/"})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTokenStore, errors.AsStandardError(err).Code)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestClient_Do_MultipartUpload(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "t12", r.FormValue("doc_type"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "t12.csv", hdr.Filename)
		assert.Equal(t, "month,income", string(data))

		w.WriteHeader(nethttp.StatusCreated)
		_, _ = w.Write([]byte(`{"id":3}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	body, err := c.Do(context.Background(), Request{
		Operation: "uploadDocument",
		Method:    "POST",
		Path:      "deals/7/documents/",
		Upload: &Upload{
			Field:    "file",
			FileName: "t12.csv",
			Reader:   strings.NewReader("month,income"),
			Form:     map[string]string{"doc_type": "t12"},
		},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3}`, string(body))
}

func TestClient_Download_ResolvesRelativeLocation(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, "/media/exports/deal_7.pdf", r.URL.Path)
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	var buf bytes.Buffer
	require.NoError(t, c.Download(context.Background(), "/media/exports/deal_7.pdf", &buf))
	assert.Equal(t, "%PDF", buf.String())
}

// signalWriter closes first on its first Write.
type signalWriter struct {
	bytes.Buffer
	first chan struct{}
	once  sync.Once
}

func (w *signalWriter) Write(p []byte) (int, error) {
	w.once.Do(func() { close(w.first) })
	return w.Buffer.Write(p)
}

func TestClient_Download_StreamsBeforeBodyCompletes(t *testing.T) {
	w := &signalWriter{first: make(chan struct{})}
	srv := httptest.NewServer(nethttp.HandlerFunc(func(rw nethttp.ResponseWriter, r *nethttp.Request) {
		_, _ = rw.Write([]byte("head,"))
		rw.(nethttp.Flusher).Flush()
		select {
		case <-w.first:
			_, _ = rw.Write([]byte("tail"))
		case <-time.After(time.Second):
			_, _ = rw.Write([]byte("buffered"))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Download(context.Background(), "/media/exports/deal_7.xlsx", w))
	assert.Equal(t, "head,tail", w.String())
}

func TestClient_Download_ErrorStatusKeepsBody(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(rw nethttp.ResponseWriter, r *nethttp.Request) {
		rw.WriteHeader(nethttp.StatusNotFound)
		_, _ = rw.Write([]byte(`{"detail":"Not found."}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	var buf bytes.Buffer
	err := c.Download(context.Background(), "/media/exports/missing.pdf", &buf)
	require.Error(t, err)

	stdErr := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrCodeNotFound, stdErr.Code)
	assert.Equal(t, `{"detail":"Not found."}`, stdErr.Details)
	assert.Empty(t, buf.String())
}

func TestClient_Do_Timeout(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Do(ctx, Request{Operation: "listDeals", Method: "GET", Path: "deals/"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTimeout, errors.AsStandardError(err).Code)
}
