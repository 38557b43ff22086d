package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_Success(t *testing.T) {
	body := []byte("fake mp4 payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "video.mp4")
	f := New(1024, 5*time.Second)

	asset, err := f.Fetch(context.Background(), srv.URL, dest, KindVideo)
	require.NoError(t, err)

	assert.Equal(t, dest, asset.Path)
	assert.Equal(t, int64(len(body)), asset.Size)
	assert.Equal(t, srv.URL, asset.URL)
	assert.Equal(t, KindVideo, asset.Kind)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFetch_TooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "video.mp4")
	f := New(1024, 5*time.Second)

	_, err := f.Fetch(context.Background(), srv.URL, dest, KindVideo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooLarge)

	// No partial file left behind.
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetch_ExactlyAtCapSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 1024))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "audio.mp3")
	f := New(1024, 5*time.Second)

	asset, err := f.Fetch(context.Background(), srv.URL, dest, KindAudio)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), asset.Size)
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	dest := filepath.Join(t.TempDir(), "video.mp4")
	f := New(1024, 50*time.Millisecond)

	_, err := f.Fetch(context.Background(), srv.URL, dest, KindVideo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetch_TimeoutMidTransfer(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
		w.(http.Flusher).Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	dest := filepath.Join(t.TempDir(), "video.mp4")
	f := New(1 << 20, 100*time.Millisecond)

	_, err := f.Fetch(context.Background(), srv.URL, dest, KindVideo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	// The partial body must have been discarded.
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(1024, 5*time.Second)

	_, err := f.Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x"), KindVideo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(1024, 5*time.Second)

	_, err := f.Fetch(context.Background(), srv.URL, filepath.Join(t.TempDir(), "x"), KindVideo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFetch_ConcurrentDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New(1024, 5*time.Second)

	errCh := make(chan error, 2)
	for _, name := range []string{"a.mp4", "b.mp3"} {
		go func(name string) {
			_, err := f.Fetch(context.Background(), srv.URL, filepath.Join(dir, name), KindAudio)
			errCh <- err
		}(name)
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, <-errCh)
	}
}
