package raster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urbanclimate-lab/lczmap/internal/errs"
	"github.com/urbanclimate-lab/lczmap/internal/resilience"
)

// RangeReader is an io.ReaderAt over HTTP Range requests, letting the GeoTIFF
// reader pull individual tiles of a remote raster instead of downloading the
// whole file. Each read retries transient failures under the configured
// policy; an exhausted budget surfaces as *errs.ConnectionError.
type RangeReader struct {
	ctx    context.Context
	client *http.Client
	url    string
	size   int64
	policy resilience.Policy
}

// NewRangeReader probes the resource size and returns a reader bound to ctx.
// The context bounds every subsequent ReadAt, giving callers a cancellation
// handle over the otherwise context-free io.ReaderAt interface.
func NewRangeReader(ctx context.Context, client *http.Client, url string, policy resilience.Policy) (*RangeReader, error) {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	r := &RangeReader{ctx: ctx, client: client, url: url, policy: policy}
	r.policy.OnRetry = resilience.LogRetries("raster", "probe")

	size, err := resilience.DoVal(ctx, r.policy, r.probeSize)
	if err != nil {
		return nil, connError(url, err)
	}
	r.size = size
	return r, nil
}

func (r *RangeReader) probeSize(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.url, nil)
	if err != nil {
		return 0, eris.Wrap(err, "raster: build HEAD request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return 0, resilience.NewTransientError(
			eris.Errorf("raster: HEAD %s returned %d", r.url, resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("raster: HEAD %s returned %d", r.url, resp.StatusCode)
	}
	if resp.ContentLength < 0 {
		return 0, eris.Errorf("raster: %s did not report a content length", r.url)
	}
	return resp.ContentLength, nil
}

// Size returns the remote resource length in bytes.
func (r *RangeReader) Size() int64 { return r.size }

// ReadAt implements io.ReaderAt with a ranged GET per call.
func (r *RangeReader) ReadAt(p []byte, off int64) (int, error) {
	if off >= r.size {
		return 0, io.EOF
	}
	want := int64(len(p))
	if off+want > r.size {
		want = r.size - off
	}

	policy := r.policy
	policy.OnRetry = resilience.LogRetries("raster", "range_read")

	n, err := resilience.DoVal(r.ctx, policy, func(ctx context.Context) (int, error) {
		return r.rangeGet(ctx, p[:want], off)
	})
	if err != nil {
		return n, connError(r.url, err)
	}
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

func (r *RangeReader) rangeGet(ctx context.Context, p []byte, off int64) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return 0, eris.Wrap(err, "raster: build range request")
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1))

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return 0, resilience.NewTransientError(
			eris.Errorf("raster: range GET returned %d", resp.StatusCode), resp.StatusCode)
	}
	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		// Server ignored the Range header; skip to the offset.
		if _, err := io.CopyN(io.Discard, resp.Body, off); err != nil {
			return 0, resilience.NewTransientError(eris.Wrap(err, "raster: skip to offset"), 0)
		}
	default:
		return 0, eris.Errorf("raster: range GET returned %d", resp.StatusCode)
	}

	n, err := io.ReadFull(resp.Body, p)
	if err != nil {
		return n, resilience.NewTransientError(eris.Wrap(err, "raster: read range body"), 0)
	}
	return n, nil
}

// connError wraps retry-exhausted failures as the taxonomy ConnectionError,
// passing through errors that are already categorized.
func connError(url string, err error) error {
	if errs.CategoryOf(err) != "" {
		return err
	}
	return errs.NewConnectionError(url, err)
}

// DownloadTo streams the full remote resource to a local file. Used only when
// the caller explicitly asks to persist the global raster.
func DownloadTo(ctx context.Context, client *http.Client, url, dest string) (int64, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, eris.Wrap(err, "raster: build download request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, errs.NewConnectionError(url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, errs.NewConnectionError(url, eris.Errorf("raster: download returned %d", resp.StatusCode))
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrapf(err, "raster: create %s", dest)
	}

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = f.Close()
		return n, errs.NewConnectionError(url, err)
	}
	if err := f.Close(); err != nil {
		return n, eris.Wrapf(err, "raster: close %s", dest)
	}

	zap.L().Info("saved global raster",
		zap.String("dest", dest),
		zap.Int64("bytes", n),
	)
	return n, nil
}
