package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	content := []byte(`{"hello": 0}`)
	var mu sync.Mutex
	var gotAuth, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotAuth, gotAgent = r.Header.Get("Authorization"), r.Header.Get("User-Agent")
		mu.Unlock()
		if r.URL.Path == "/missing" {
			http.Error(w, "not here", http.StatusNotFound)
			return
		}
		_, _ = w.Write(content)
	}))
	defer server.Close()

	m := New().WithAuthToken("secret").WithUserAgent("qwen3-tokenizer/test")
	filePath := filepath.Join(t.TempDir(), "vocab.json")
	var lastDownloaded int64
	err := m.Download(context.Background(), server.URL+"/vocab.json", filePath, func(downloaded, total int64) {
		lastDownloaded = downloaded
	})
	require.NoError(t, err)
	mu.Lock()
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "qwen3-tokenizer/test", gotAgent)
	mu.Unlock()
	assert.Equal(t, int64(len(content)), lastDownloaded)
	got, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	err = m.Download(context.Background(), server.URL+"/missing", filePath, nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "not here")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, m.Download(ctx, server.URL+"/vocab.json", filePath, nil))
}

func TestMaxParallel(t *testing.T) {
	var current, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	m := New().MaxParallel(2)
	dir := t.TempDir()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Download(context.Background(), server.URL, filepath.Join(dir, string(rune('a'+i))), nil))
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestSemaphore(t *testing.T) {
	s := NewSemaphore(1)
	s.Acquire()
	acquired := make(chan struct{})
	go func() {
		s.Acquire()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("second Acquire should block on a semaphore of capacity 1")
	case <-time.After(20 * time.Millisecond):
	}
	s.Resize(2)
	<-acquired
	assert.Equal(t, 2, s.InUse())
	s.Release()
	s.Release()
	assert.Equal(t, 0, s.InUse())

	unlimited := NewSemaphore(0)
	for range 100 {
		unlimited.Acquire()
	}
	assert.Equal(t, 100, unlimited.InUse())
}
