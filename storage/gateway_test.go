package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayFetchFromLocalStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	data := []byte("encrypted-hello")
	addr := ComputeAddress(data)
	require.NoError(t, store.Put(addr, data))

	g := NewGateway(store)
	got, err := g.Fetch(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestGatewayFetchFromEndpoint(t *testing.T) {
	data := []byte("remote-encrypted-data")
	addr := ComputeAddress(data)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v0/block/"), "unexpected path %s", r.URL.Path)
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	// No local store, forces the endpoint fetch.
	g := &Gateway{Endpoints: []string{srv.URL}, Client: srv.Client()}

	got, err := g.Fetch(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestGatewayCachesRemoteResults(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	data := []byte("cached-cipher")
	addr := ComputeAddress(data)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	g := &Gateway{Store: store, Endpoints: []string{srv.URL}, Client: srv.Client()}

	got, err := g.Fetch(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	cached, err := store.Get(addr)
	require.NoError(t, err)
	assert.Equal(t, data, cached, "remote result should be cached locally")
}

func TestGatewayLocalPriority(t *testing.T) {
	store := NewMemStore()
	data := []byte("local-version")
	addr := ComputeAddress(data)
	require.NoError(t, store.Put(addr, data))

	endpointCalled := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpointCalled = true
	}))
	defer srv.Close()

	g := &Gateway{Store: store, Endpoints: []string{srv.URL}, Client: srv.Client()}

	got, err := g.Fetch(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.False(t, endpointCalled, "should not contact endpoint when local has the blob")
}

func TestGatewayRejectsHashMismatch(t *testing.T) {
	addr := ComputeAddress([]byte("expected content"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered content"))
	}))
	defer srv.Close()

	g := &Gateway{Endpoints: []string{srv.URL}, Client: srv.Client()}

	_, err := g.Fetch(context.Background(), addr)
	assert.ErrorIs(t, err, ErrNotFound, "mismatching bytes must not be trusted")
}

func TestGatewayMismatchFallback(t *testing.T) {
	data := []byte("correct-content")
	addr := ComputeAddress(data)

	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tampered-content"))
	}))
	defer badSrv.Close()

	goodSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer goodSrv.Close()

	g := &Gateway{Endpoints: []string{badSrv.URL, goodSrv.URL}, Client: &http.Client{}}

	got, err := g.Fetch(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestGatewayEndpointFallback(t *testing.T) {
	data := []byte("from-second-endpoint")
	addr := ComputeAddress(data)

	fail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer fail.Close()

	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer ok.Close()

	g := &Gateway{Endpoints: []string{fail.URL, ok.URL}, Client: &http.Client{}}

	got, err := g.Fetch(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestGatewayAllSourcesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	g := &Gateway{Store: NewMemStore(), Endpoints: []string{srv.URL}, Client: srv.Client()}

	_, err := g.Fetch(context.Background(), ComputeAddress([]byte("missing")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGatewayNoSources(t *testing.T) {
	g := &Gateway{}
	_, err := g.Fetch(context.Background(), ComputeAddress([]byte("nowhere")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGatewayInvalidAddress(t *testing.T) {
	g := NewGateway(nil)
	_, err := g.Fetch(context.Background(), []byte("short"))
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestGatewayContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	g := &Gateway{Endpoints: []string{srv.URL}, Client: &http.Client{}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.Fetch(ctx, ComputeAddress([]byte("slow")))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
