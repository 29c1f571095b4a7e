package riot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// statusPath is the cheapest authenticated platform route
const statusPath = "/lol/status/v4/platform-data"

// KeyValidator probes a key against the platform status route before a
// collection starts
type KeyValidator struct {
	probeURL string
	http     *http.Client
}

// KeyValidatorOption configures a KeyValidator
type KeyValidatorOption func(*KeyValidator)

// WithBaseURL points the probe at another host
func WithBaseURL(u string) KeyValidatorOption {
	return func(v *KeyValidator) { v.probeURL = u + statusPath }
}

// WithTimeout bounds a single probe
func WithTimeout(d time.Duration) KeyValidatorOption {
	return func(v *KeyValidator) {
		if d > 0 {
			v.http.Timeout = d
		}
	}
}

func NewKeyValidator(platformRegion string, opts ...KeyValidatorOption) *KeyValidator {
	v := &KeyValidator{
		probeURL: PlatformURL(platformRegion) + statusPath,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CheckKey returns nil when Riot accepts apiKey. A 401 or 403 yields an
// error matching ErrInvalidAPIKey; anything else means the probe was
// inconclusive.
func (v *KeyValidator) CheckKey(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return errors.New("empty api key")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.probeURL, nil)
	if err != nil {
		return fmt.Errorf("build key probe: %w", err)
	}
	req.Header.Set("X-Riot-Token", apiKey)

	resp, err := v.http.Do(req)
	if err != nil {
		return fmt.Errorf("key probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	se := newStatusError(resp, v.probeURL)
	if IsAPIKeyError(se) {
		return fmt.Errorf("%w: %w", ErrInvalidAPIKey, se)
	}
	return se
}

// MaskAPIKey keeps the "RGAPI" prefix and the last four characters
func MaskAPIKey(key string) string {
	if len(key) <= 10 {
		return "****"
	}
	return key[:5] + "..." + key[len(key)-4:]
}
