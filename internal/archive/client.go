package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrDownload is returned when an archive cannot be fetched.
var ErrDownload = errors.New("archive download failed")

// Options configures a Client.
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration // zero keeps the retryablehttp default
	RetryWaitMax time.Duration
	// Progress receives a progress bar while downloading. Nil disables it.
	Progress io.Writer
}

// Client downloads archives over HTTP, retrying transient failures.
type Client struct {
	http     *retryablehttp.Client
	progress io.Writer
}

// Download describes a completed fetch.
type Download struct {
	Bytes    int64
	Checksum string // hex SHA-256 of the full response body
}

// NewClient creates a Client. base may be nil.
func NewClient(base *http.Client, opts Options) *Client {
	rc := retryablehttp.NewClient()
	if base != nil {
		rc.HTTPClient = base
	}
	rc.RetryMax = opts.RetryMax
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	rc.Logger = leveledLogger{}

	return &Client{http: rc, progress: opts.Progress}
}

// Fetch GETs url and hands the body to consume. Whatever consume leaves
// unread is drained so the checksum always covers the whole body.
func (c *Client) Fetch(ctx context.Context, url string, consume func(io.Reader) error) (Download, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Download{}, fmt.Errorf("%w: %v", ErrDownload, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Download{}, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Download{}, fmt.Errorf("%w: HTTP %d from %s", ErrDownload, resp.StatusCode, url)
	}

	var body io.Reader = resp.Body
	if c.progress != nil {
		total := resp.ContentLength
		if total < 0 {
			total = 0
		}
		bar := pb.New64(total).SetTemplate(pb.Full)
		bar.Set(pb.Bytes, true)
		bar.SetWriter(c.progress)
		bar.Start()
		defer bar.Finish()
		body = bar.NewProxyReader(body)
	}

	h := sha256.New()
	cr := &countingReader{r: io.TeeReader(body, h)}

	if err := consume(cr); err != nil {
		return Download{}, err
	}
	if _, err := io.Copy(io.Discard, cr); err != nil {
		return Download{}, fmt.Errorf("%w: reading body: %v", ErrDownload, err)
	}

	return Download{
		Bytes:    cr.n,
		Checksum: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
