// Package downloader implements a download manager that limits the number of parallel HTTP
// downloads, shared by the hub repositories.
package downloader

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ProgressCallback is called synchronously during a download, after each chunk is written.
// totalBytes is -1 if the server didn't report the size.
type ProgressCallback func(downloadedBytes, totalBytes int64)

// Manager handles downloads, limiting the number of parallel ones. It is safe for concurrent use.
// Create it with New.
type Manager struct {
	semaphore *Semaphore
	client    *http.Client
	authToken string
	userAgent string
}

// DefaultMaxParallel is the default number of simultaneous downloads.
const DefaultMaxParallel = 20

// New creates a Manager with DefaultMaxParallel downloads and the default http.Client.
func New() *Manager {
	return &Manager{
		semaphore: NewSemaphore(DefaultMaxParallel),
		client:    http.DefaultClient,
	}
}

// MaxParallel sets the maximum number of simultaneous downloads. If <= 0 there is no limit.
func (m *Manager) MaxParallel(n int) *Manager {
	m.semaphore.Resize(n)
	return m
}

// WithAuthToken sets the bearer token sent with every request. Empty means no authentication.
func (m *Manager) WithAuthToken(authToken string) *Manager {
	m.authToken = authToken
	return m
}

// WithUserAgent sets the User-Agent header of the requests.
func (m *Manager) WithUserAgent(userAgent string) *Manager {
	m.userAgent = userAgent
	return m
}

// WithHTTPClient sets the client used for the requests.
func (m *Manager) WithHTTPClient(client *http.Client) *Manager {
	m.client = client
	return m
}

// StatusError is returned when the server answers with a status other than 200.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return "request to " + e.URL + " failed with status " + strconv.Itoa(e.StatusCode) + ": " + e.Body
}

// maxErrorBody bounds how much of an error response body is kept in StatusError.
const maxErrorBody = 512

func (m *Manager) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create request for %q", url)
	}
	if m.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+m.authToken)
	}
	if m.userAgent != "" {
		req.Header.Set("User-Agent", m.userAgent)
	}
	return req, nil
}

// Download url into filePath, truncating it if it exists.
//
// It blocks while the maximum number of parallel downloads is reached. If callback is not nil, it is
// called as the download progresses.
func (m *Manager) Download(ctx context.Context, url, filePath string, callback ProgressCallback) error {
	m.semaphore.Acquire()
	defer m.semaphore.Release()
	if err := ctx.Err(); err != nil {
		return err
	}

	req, err := m.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed request to download %q", url)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.WithStack(&StatusError{URL: url, StatusCode: resp.StatusCode, Body: string(body)})
	}

	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", filePath)
	}
	var r io.Reader = resp.Body
	if callback != nil {
		callback(0, resp.ContentLength)
		r = &progressReader{reader: resp.Body, total: resp.ContentLength, callback: callback}
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return errors.Wrapf(err, "failed to download %q to %q", url, filePath)
	}
	klog.V(2).Infof("downloaded %d bytes from %q", n, url)
	return nil
}

type progressReader struct {
	reader     io.Reader
	downloaded int64
	total      int64
	callback   ProgressCallback
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.downloaded += int64(n)
		r.callback(r.downloaded, r.total)
	}
	return n, err
}
