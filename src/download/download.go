// Package download implements the bounded-concurrency HTTP fetch
// primitives shared by every stage that pulls bytes off the network:
// version manifest, client meta, assets, libraries, Java distributions,
// modloader metadata, and addons.
package download

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mcvm-launcher/mcvm-sub000/src/mcerrors"
)

// Client wraps an *http.Client with the shared fd semaphore used by
// every bulk-fetch stage in the process.
type Client struct {
	HTTP *http.Client
	sem  chan struct{}
}

// NewClient builds a Client with a sensible timeout and a semaphore
// sized by TransferLimit.
func NewClient() *Client {
	return &Client{
		HTTP: &http.Client{Timeout: 60 * time.Second},
		sem:  make(chan struct{}, TransferLimit()),
	}
}

// acquire blocks until a transfer slot is free, respecting ctx
// cancellation.
func (c *Client) acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) release() { <-c.sem }

// Bytes fetches url and returns the full response body.
func (c *Client) Bytes(ctx context.Context, op, url string) ([]byte, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &mcerrors.NetworkError{Op: op, URL: url, Err: err}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &mcerrors.NetworkError{Op: op, URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &mcerrors.NetworkError{Op: op, URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &mcerrors.NetworkError{Op: op, URL: url, Err: err}
	}
	return body, nil
}

// JSON fetches url and decodes it into out.
func (c *Client) JSON(ctx context.Context, op, url string, out interface{}) error {
	body, err := c.Bytes(ctx, op, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &mcerrors.ParseError{Source: url, Err: err}
	}
	return nil
}

// ProgressFunc reports bytes written so far out of total (total may be
// 0 if the server did not send a Content-Length).
type ProgressFunc func(written, total int64)

// ToFile streams url to dest, creating parent directories as needed,
// writing to a temporary sibling file first so a cancelled or failed
// download never leaves a half-written file at dest.
func (c *Client) ToFile(ctx context.Context, op, url, dest string, onProgress ProgressFunc) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &mcerrors.NetworkError{Op: op, URL: url, Err: err}
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &mcerrors.NetworkError{Op: op, URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &mcerrors.NetworkError{Op: op, URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				os.Remove(tmp)
				return werr
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(written, resp.ContentLength)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			os.Remove(tmp)
			return &mcerrors.NetworkError{Op: op, URL: url, Err: rerr}
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// Job is one unit of work in a bounded-concurrency batch.
type Job struct {
	// Run performs the job. It must respect ctx cancellation.
	Run func(ctx context.Context) error
}

// RunBatch runs jobs with concurrency bounded by TransferLimit,
// consuming the completion stream as jobs finish (order is not
// preserved). It returns the first error encountered, but lets all
// already-started jobs finish before returning.
func RunBatch(ctx context.Context, jobs []Job) error {
	limit := TransferLimit()
	if limit > len(jobs) {
		limit = len(jobs)
	}
	if limit < 1 {
		limit = 1
	}

	sem := make(chan struct{}, limit)
	errCh := make(chan error, len(jobs))
	var wg sync.WaitGroup

	for _, job := range jobs {
		job := job
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			errCh <- job.Run(ctx)
		}()
	}
	wg.Wait()
	close(errCh)
	var first error
	for err := range errCh {
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}
