package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
	"github.com/anime-shed/reply-assistant-go/internal/imaging"
	"github.com/anime-shed/reply-assistant-go/internal/logger"
	"github.com/anime-shed/reply-assistant-go/pkg/validation"
)

const (
	defaultAttempts = 3
	defaultBackoff  = time.Second
	maxRedirects    = 3
)

// errRestrictedAddress is returned by the dialer for loopback, private and
// link-local destinations.
var errRestrictedAddress = errors.New("destination address is not allowed")

// URLChecker vets every URL the fetcher visits, redirects included.
type URLChecker interface {
	ValidateImageURL(imageURL string) error
}

// HTTPImageFetcher downloads screenshots over HTTP(S).
type HTTPImageFetcher struct {
	client       *http.Client
	checker      URLChecker
	allowPrivate bool
	attempts     int
	backoff      time.Duration
	maxBytes     int64
}

// HTTPOption configures an HTTPImageFetcher.
type HTTPOption func(*HTTPImageFetcher)

// WithHTTPClient replaces the default client. The caller's client is used
// as is, without the dial and redirect guards.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPImageFetcher) { f.client = c }
}

// WithURLChecker replaces the validator applied to the request URL and to
// every redirect target.
func WithURLChecker(c URLChecker) HTTPOption {
	return func(f *HTTPImageFetcher) { f.checker = c }
}

// WithPrivateNetworks lets the fetcher connect to loopback and private
// addresses. Only meant for tests and trusted deployments.
func WithPrivateNetworks(allow bool) HTTPOption {
	return func(f *HTTPImageFetcher) { f.allowPrivate = allow }
}

// WithRetry sets the number of attempts and the base backoff. Attempt n
// waits n*backoff before the next try.
func WithRetry(attempts int, backoff time.Duration) HTTPOption {
	return func(f *HTTPImageFetcher) {
		if attempts > 0 {
			f.attempts = attempts
		}
		if backoff >= 0 {
			f.backoff = backoff
		}
	}
}

// WithMaxBytes caps the downloaded body.
func WithMaxBytes(n int64) HTTPOption {
	return func(f *HTTPImageFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewHTTPImageFetcher creates an HTTP image fetcher. Unless private
// networks are allowed, every resolved address is checked before connecting.
func NewHTTPImageFetcher(timeout time.Duration, opts ...HTTPOption) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	f := &HTTPImageFetcher{
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
		maxBytes: imaging.HardSizeLimit,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.checker == nil {
		f.checker = validation.NewURLValidator(validation.WithPrivateHosts(f.allowPrivate))
	}
	if f.client != nil {
		return f
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if !f.allowPrivate {
		dialer.Control = restrictedAddressGuard
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	f.client = &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return apperrors.NewValidationError("The image URL redirects too many times.",
					fmt.Errorf("too many redirects (limit: %d)", maxRedirects))
			}
			return f.checker.ValidateImageURL(req.URL.String())
		},
	}
	return f
}

// restrictedAddressGuard runs after DNS resolution, so hostnames that
// resolve to internal addresses are refused as well.
func restrictedAddressGuard(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errRestrictedAddress, address)
	}
	ip := net.ParseIP(host)
	if ip == nil || validation.IsRestrictedIP(ip) {
		return fmt.Errorf("%w: %s", errRestrictedAddress, host)
	}
	return nil
}

// Name returns the source name
func (h *HTTPImageFetcher) Name() string {
	return "http"
}

// FetchImage downloads imageURL. Network failures and 5xx responses are
// retried; 4xx responses are not.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (imaging.RawImageAsset, error) {
	parsed, err := url.Parse(imageURL)
	if err != nil {
		return imaging.RawImageAsset{}, apperrors.NewValidationError("Invalid image URL.", err)
	}
	if err := h.checker.ValidateImageURL(imageURL); err != nil {
		return imaging.RawImageAsset{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= h.attempts; attempt++ {
		asset, retry, err := h.fetchOnce(ctx, imageURL, parsed.Path)
		if err == nil {
			return asset, nil
		}
		lastErr = err
		if !retry || attempt == h.attempts {
			break
		}

		logger.WithFields(logrus.Fields{
			"url":     imageURL,
			"attempt": attempt,
		}).WithError(err).Warn("Image download failed, retrying")

		select {
		case <-time.After(time.Duration(attempt) * h.backoff):
		case <-ctx.Done():
			return imaging.RawImageAsset{}, apperrors.NewTimeoutError("Downloading the image took too long.", ctx.Err())
		}
	}

	if appErr, ok := apperrors.As(lastErr); ok {
		return imaging.RawImageAsset{}, appErr
	}
	return imaging.RawImageAsset{}, apperrors.NewNetworkError(
		"Could not download the image. Please try again later.",
		fmt.Errorf("failed to fetch image after %d attempts: %w", h.attempts, lastErr),
	)
}

// fetchOnce performs a single GET. The bool reports whether the failure is
// worth retrying.
func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL, urlPath string) (imaging.RawImageAsset, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return imaging.RawImageAsset{}, false, apperrors.NewValidationError("Invalid image URL.", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/heic, image/heif, */*")
	req.Header.Set("User-Agent", "Reply-Assistant/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return imaging.RawImageAsset{}, false, apperrors.NewTimeoutError("Downloading the image took too long.", err)
		}
		if errors.Is(err, errRestrictedAddress) {
			return imaging.RawImageAsset{}, false, apperrors.NewValidationError("URL host not allowed", err)
		}
		if appErr, ok := apperrors.As(err); ok {
			return imaging.RawImageAsset{}, false, appErr
		}
		return imaging.RawImageAsset{}, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return imaging.RawImageAsset{}, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return imaging.RawImageAsset{}, false, apperrors.NewValidationError(
			"Could not download the image from that URL.",
			fmt.Errorf("client error: status code %d", resp.StatusCode),
		)
	case resp.StatusCode != http.StatusOK:
		return imaging.RawImageAsset{}, false, apperrors.NewValidationError(
			"Could not download the image from that URL.",
			fmt.Errorf("unexpected status code %d", resp.StatusCode),
		)
	}

	if resp.ContentLength > h.maxBytes {
		return imaging.RawImageAsset{}, false, apperrors.NewValidationError(
			fmt.Sprintf("Image is too large. The maximum size is %d MB.", h.maxBytes/(1024*1024)), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return imaging.RawImageAsset{}, true, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return imaging.RawImageAsset{}, false, apperrors.NewValidationError(
			fmt.Sprintf("Image is too large. The maximum size is %d MB.", h.maxBytes/(1024*1024)), nil)
	}

	return imaging.RawImageFromBytes(assetName(urlPath), contentType(resp.Header.Get("Content-Type"), data), data), false, nil
}
