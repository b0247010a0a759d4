package accessor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// JobHandle identifies one download in the job table of an accessor
type JobHandle string

func NewJobHandle() JobHandle {
	return JobHandle(uuid.NewString())
}

// Downloader fetches a document. Download blocks, the accessor calls it from its own goroutine.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// maxDocumentSize caps downloaded documents
const maxDocumentSize = 16 << 20

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// HTTPDownloader downloads over HTTP, retrying failed attempts with exponential backoff.
// file:// URLs are read from disk.
type HTTPDownloader struct {
	Client     *http.Client
	UserAgent  string
	MaxElapsed time.Duration
}

func NewHTTPDownloader(timeout time.Duration) *HTTPDownloader {
	return &HTTPDownloader{
		Client:     &http.Client{Timeout: timeout},
		UserAgent:  "timetables/1.0",
		MaxElapsed: 2 * timeout,
	}
}

func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, error) {
	if path, isFile := strings.CutPrefix(url, "file://"); isFile {
		return os.ReadFile(path)
	}

	var document []byte

	operation := func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		request.Header.Set("User-Agent", d.UserAgent)

		response, err := d.Client.Do(request)
		if err != nil {
			return err
		}
		defer response.Body.Close()

		if response.StatusCode >= 500 || response.StatusCode == http.StatusTooManyRequests {
			return &statusError{code: response.StatusCode}
		}
		if response.StatusCode != http.StatusOK {
			return backoff.Permanent(&statusError{code: response.StatusCode})
		}

		document, err = io.ReadAll(io.LimitReader(response.Body, maxDocumentSize))
		return err
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 250 * time.Millisecond
	retry.MaxElapsedTime = d.MaxElapsed

	notify := func(err error, wait time.Duration) {
		log.Debug().Err(err).Str("url", url).Dur("wait", wait).Msg("Retrying download")
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(retry, ctx), notify); err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}

	return document, nil
}
