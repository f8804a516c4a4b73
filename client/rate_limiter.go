package client

import (
	"context"
	"io"
	"sync"

	"golang.org/x/time/rate"
)

var (
	downloadLimiter   *rate.Limiter
	downloadLimiterMu sync.RWMutex
)

// SetDownloadRateLimit caps the combined throughput of document downloads.
// A limit of zero or less removes the cap.
func SetDownloadRateLimit(bytesPerSecond int64) {
	downloadLimiterMu.Lock()
	defer downloadLimiterMu.Unlock()
	if bytesPerSecond <= 0 {
		downloadLimiter = nil
		return
	}
	burst := int(bytesPerSecond)
	if downloadLimiter == nil {
		downloadLimiter = rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
		return
	}
	downloadLimiter.SetLimit(rate.Limit(bytesPerSecond))
	downloadLimiter.SetBurst(burst)
}

// DownloadRateLimit returns the current cap in bytes per second, 0 when unlimited.
func DownloadRateLimit() int64 {
	downloadLimiterMu.RLock()
	defer downloadLimiterMu.RUnlock()
	if downloadLimiter == nil {
		return 0
	}
	return int64(downloadLimiter.Limit())
}

type limitedReader struct {
	ctx   context.Context
	under io.Reader
	lim   *rate.Limiter
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.lim == nil {
		return lr.under.Read(p)
	}
	if burst := lr.lim.Burst(); burst > 0 && len(p) > burst {
		p = p[:burst]
	}
	n, err := lr.under.Read(p)
	if n > 0 {
		if werr := lr.lim.WaitN(lr.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func wrapWithDownloadLimiter(ctx context.Context, r io.Reader) io.Reader {
	downloadLimiterMu.RLock()
	lim := downloadLimiter
	downloadLimiterMu.RUnlock()

	if lim == nil {
		return r
	}
	return &limitedReader{ctx: ctx, under: r, lim: lim}
}
