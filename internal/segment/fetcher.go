// Package segment implements SegmentFetcher (spec.md §4.3), grounded
// on the teacher's worker-pool segment downloader in
// internal/downloader/hls/hls.go (DownloadWithProgress): a bounded
// worker pool over a jobs channel, per-segment scratch files and an
// index-keyed reassembly buffer for strict-order concatenation. AES-128
// decryption is grounded on the other_examples AES-CBC segment
// decryptors (famomatic/ytv1, guiyumin/vget).
package segment

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alvarorichard/vixstream/internal/domain"
	"github.com/alvarorichard/vixstream/internal/progress"
)

// FetchError is returned when one or more segments could not be
// retrieved after exhausting the retry budget.
type FetchError struct {
	Index int
	URL   string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("segment %d (%s) failed: %v", e.Index, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configures a Fetcher invocation.
type Options struct {
	Concurrency    int
	Referer        string
	Encryption     *domain.EncryptionInfo
	KeyBytes       []byte // required when Encryption.Method == AES128
	RetryMaxAttempts int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// ProgressFunc receives a tick after each successfully fetched
// segment. Ticks are monotonic in downloaded count only, not in
// segment index (spec.md §4.3 step 5).
type ProgressFunc func(downloadedSegments, totalSegments int, downloadedBytes int64, bytesPerSecond float64, etaSeconds int, pct float64)

// Fetcher downloads an ordered list of HLS segments into a single
// concatenated file.
type Fetcher struct {
	Client *http.Client
}

// NewFetcher builds a Fetcher. A nil client falls back to a
// transport tuned the way the teacher's hls.NewDownloader is: HTTP/2
// disabled, since CDNs reset multiplexed streams under concurrent
// segment load.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = defaultHLSClient()
	}
	return &Fetcher{Client: client}
}

func defaultHLSClient() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Minute,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}
}

// Fetch downloads segmentURLs in parallel (bounded by opts.Concurrency)
// into outputPath, preserving input order, decrypting per opts if
// required, and reporting progress via onProgress (may be nil).
func (f *Fetcher) Fetch(ctx context.Context, segmentURLs []string, outputPath string, opts Options, onProgress ProgressFunc) error {
	if len(segmentURLs) == 0 {
		return fmt.Errorf("no segments to download")
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	scratchDir, err := os.MkdirTemp("", "vixstream-segments-*")
	if err != nil {
		return fmt.Errorf("create segment scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	if opts.Encryption != nil && opts.Encryption.Method == domain.EncryptionOther {
		return fmt.Errorf("unsupported segment encryption method: only AES-128 can be decrypted")
	}

	var block cipher.Block
	if opts.Encryption != nil && opts.Encryption.Method == domain.EncryptionAES128 {
		if len(opts.KeyBytes) == 0 {
			return fmt.Errorf("AES-128 encryption declared but no key bytes supplied")
		}
		block, err = aes.NewCipher(opts.KeyBytes)
		if err != nil {
			return fmt.Errorf("construct AES cipher: %w", err)
		}
	}

	total := len(segmentURLs)
	type job struct {
		index int
		url   string
	}
	type result struct {
		index int
		path  string
		size  int64
		err   error
	}

	jobs := make(chan job, total)
	results := make(chan result, total)

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-fetchCtx.Done():
					results <- result{index: j.index, err: fetchCtx.Err()}
					continue
				default:
				}

				segPath := filepath.Join(scratchDir, fmt.Sprintf("segment_%05d.ts", j.index))
				size, err := f.fetchOne(fetchCtx, j.index, j.url, segPath, opts, block)
				results <- result{index: j.index, path: segPath, size: size, err: err}
			}
		}()
	}

	for i, u := range segmentURLs {
		jobs <- job{index: i, url: u}
	}
	close(jobs)

	var (
		downloadedCount int32
		downloadedBytes int64
		firstErr        error
		startedAt       = time.Now()
	)

	for i := 0; i < total; i++ {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = &FetchError{Index: r.index, URL: segmentURLs[r.index], Err: r.err}
				cancel() // stop accepting new segment fetches (spec.md §4.7 cancellation)
			}
			continue
		}
		atomic.AddInt32(&downloadedCount, 1)
		newTotal := atomic.AddInt64(&downloadedBytes, r.size)

		if onProgress != nil {
			count := int(atomic.LoadInt32(&downloadedCount))
			elapsed := time.Since(startedAt).Seconds()
			var bps float64
			if elapsed > 0 {
				bps = float64(newTotal) / elapsed
			}
			avgSegSize := float64(newTotal) / float64(count)
			estimatedTotal := avgSegSize * float64(total)
			pct := progress.ClampPercent(float64(count) / float64(total) * 100)
			var eta int
			if bps > 0 {
				remaining := estimatedTotal - float64(newTotal)
				if remaining < 0 {
					remaining = 0
				}
				eta = int(remaining / bps)
			}
			onProgress(count, total, newTotal, bps, eta, pct)
		}
	}

	wg.Wait()
	close(results)

	if firstErr != nil {
		return firstErr
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	out, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	for i := 0; i < total; i++ {
		segPath := filepath.Join(scratchDir, fmt.Sprintf("segment_%05d.ts", i))
		if err := appendFile(out, segPath); err != nil {
			return fmt.Errorf("concatenate segment %d: %w", i, err)
		}
	}

	return nil
}

func appendFile(dst *os.File, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}

// fetchOne downloads a single segment with retry+backoff, decrypts it
// if block is non-nil, and writes it to segPath. Returns the written
// byte count.
func (f *Fetcher) fetchOne(ctx context.Context, index int, url, segPath string, opts Options, block cipher.Block) (int64, error) {
	maxAttempts := opts.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1000
	}
	baseDelay := opts.RetryBaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	maxDelay := opts.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		body, err := f.doGet(ctx, url, opts.Referer)
		if err == nil {
			if block != nil {
				iv := ivForSegment(opts.Encryption, index)
				body, err = decryptAES128CBC(block, iv, body)
			}
			if err == nil {
				if err := os.WriteFile(segPath, body, 0o600); err != nil {
					return 0, err
				}
				return int64(len(body)), nil
			}
			// Crypto errors are fatal to the affected track (spec.md
			// §7), not retried.
			return 0, err
		}

		lastErr = err
		if !isRetryable(err) {
			return 0, err
		}

		delay := backoffDelay(attempt, baseDelay, maxDelay)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}

	return 0, fmt.Errorf("exhausted %d retry attempts: %w", maxAttempts, lastErr)
}

// retryableHTTPStatus reports whether it's worth retrying this status.
func retryableHTTPStatus(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable || status >= 500
}

type httpStatusError struct{ status int }

func (e *httpStatusError) Error() string { return fmt.Sprintf("HTTP %d", e.status) }

func (f *Fetcher) doGet(ctx context.Context, url, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if retryableHTTPStatus(resp.StatusCode) {
			return nil, &httpStatusError{status: resp.StatusCode}
		}
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// isRetryable classifies an error as retryable per spec.md §4.3 step
// 3: HTTP 429/503/5xx, and transport-level timeout/connection reset.
func isRetryable(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	// os/net wrap "connection reset by peer" without a dedicated
	// sentinel; fall back to a substring check as the stdlib itself
	// recommends for this specific case.
	msg := err.Error()
	return containsAny(msg, "connection reset", "timeout", "EOF", "broken pipe")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(s) >= len(sub) && indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// backoffDelay computes base*2^attempt, bounded by maxDelay, with a
// small jitter to avoid a thundering herd across segments.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= max {
			d = max
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	d += jitter
	if d > max {
		d = max
	}
	return d
}

// ivForSegment derives the IV for segment index per spec.md §4.3 step
// 4 / §8 property 8: the explicit hex IV when present, else the
// 16-byte big-endian encoding of the segment index.
func ivForSegment(enc *domain.EncryptionInfo, index int) []byte {
	if enc != nil && len(enc.IV) == aes.BlockSize {
		return enc.IV
	}
	iv := make([]byte, aes.BlockSize)
	binary.BigEndian.PutUint64(iv[8:], uint64(index))
	return iv
}

// decryptAES128CBC decrypts body in place using block and iv, then
// strips PKCS#7 padding.
func decryptAES128CBC(block cipher.Block, iv, body []byte) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}
	if len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("encrypted segment not block-aligned (%d bytes)", len(body))
	}

	decrypter := cipher.NewCBCDecrypter(block, iv)
	out := make([]byte, len(body))
	decrypter.CryptBlocks(out, body)

	padding := int(out[len(out)-1])
	if padding == 0 || padding > len(out) || padding > aes.BlockSize {
		return nil, fmt.Errorf("invalid PKCS#7 padding")
	}
	return out[:len(out)-padding], nil
}
