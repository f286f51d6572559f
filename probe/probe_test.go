package probe

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	assert.Equal(t, Exists, p.Check(srv.URL+"/vid.mp4"))
	assert.True(t, p.Exists(srv.URL+"/vid.mp4"))
}

func TestCheckNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	assert.Equal(t, NotExists, p.Check(srv.URL+"/missing.mp4"))
	assert.False(t, p.Exists(srv.URL+"/missing.mp4"))
}

func TestCheckHeadRejectedFallsBackToGet(t *testing.T) {
	var sawGet bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		w.Write([]byte("content"))
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	assert.Equal(t, Exists, p.Check(srv.URL+"/vid.mp4"))
	assert.True(t, sawGet)
}

func TestCheckHeadRejectedGetMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	assert.Equal(t, NotExists, p.Check(srv.URL+"/vid.mp4"))
}

func TestCheckUnreachableHostIsProbeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := New(time.Second)
	assert.Equal(t, ProbeError, p.Check(url+"/vid.mp4"))
	// probe errors collapse into non-existence for selection
	assert.False(t, p.Exists(url+"/vid.mp4"))
}

func TestCheckRedirectCountsAsExists(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusMovedPermanently)
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	assert.Equal(t, Exists, p.Check(srv.URL+"/vid.mp4"))
}
