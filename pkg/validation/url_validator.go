package validation

import (
	"net"
	"net/url"
	"strings"

	apperrors "github.com/anime-shed/reply-assistant-go/internal/errors"
)

// URLValidator decides whether the service may download a screenshot from
// a user-supplied URL.
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	allowPrivate   bool
}

// URLOption configures a URLValidator.
type URLOption func(*URLValidator)

// WithSchemes replaces the allowed schemes (default http and https).
func WithSchemes(schemes ...string) URLOption {
	return func(v *URLValidator) { v.allowedSchemes = schemes }
}

// WithAllowedHosts restricts downloads to the given hosts. No hosts means
// any public host.
func WithAllowedHosts(hosts ...string) URLOption {
	return func(v *URLValidator) { v.allowedHosts = hosts }
}

// WithPrivateHosts permits localhost and private or loopback IP literals.
func WithPrivateHosts(allow bool) URLOption {
	return func(v *URLValidator) { v.allowPrivate = allow }
}

// NewURLValidator creates a validator. Without options it accepts http and
// https URLs to any public host.
func NewURLValidator(opts ...URLOption) *URLValidator {
	v := &URLValidator{
		allowedSchemes: []string{"http", "https"},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateImageURL validates if the provided URL is acceptable for download
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	host := parsedURL.Hostname()
	if host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if parsedURL.User != nil {
		return apperrors.NewValidationError("URL must not contain credentials", nil)
	}

	if !v.allowPrivate && isPrivateHost(host) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	if !v.isHostAllowed(host) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}

	return nil
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	scheme = strings.ToLower(scheme)
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}

// isPrivateHost only inspects the literal host; names are not resolved.
// Resolved addresses are checked again at dial time with IsRestrictedIP.
func isPrivateHost(host string) bool {
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return IsRestrictedIP(ip)
}

// IsRestrictedIP reports whether ip points into the local machine or a
// private network.
func IsRestrictedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsUnspecified()
}
