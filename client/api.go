package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/habedi/dcli/pkg/config"
	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/rs/zerolog/log"
)

const userAgent = "dcli"

// Client talks to the Destiny 2 platform API. Every error it returns is a *dclierr.Error.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
	limiter     *RateLimiter
	sleep       func(ctx context.Context, d time.Duration) error
}

// New builds a Client from configuration.
func New(cfg config.Config) *Client {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxAttempts: attempts,
		backoff:     cfg.InitialBackoff,
		limiter:     NewRateLimiter(cfg.RateLimit),
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SearchPlayer looks up Destiny memberships by display name on one platform
// (or all of them with MembershipAll).
func (c *Client) SearchPlayer(ctx context.Context, platform MembershipType, name string) ([]UserInfoCard, error) {
	path := fmt.Sprintf("/Destiny2/SearchDestinyPlayer/%d/%s/", int(platform), url.PathEscape(name))
	var cards []UserInfoCard
	if err := c.get(ctx, path, &cards); err != nil {
		return nil, err
	}
	log.Info().Str("name", name).Int("results", len(cards)).Msg("Player search finished")
	return cards, nil
}

// GetManifest fetches metadata about the current manifest.
func (c *Client) GetManifest(ctx context.Context) (Manifest, error) {
	var m Manifest
	if err := c.get(ctx, "/Destiny2/Manifest/", &m); err != nil {
		return Manifest{}, err
	}
	log.Info().Str("version", m.Version).Msg("Fetched manifest metadata")
	return m, nil
}

// get calls path and decodes the payload into out. ServiceUnavailable is
// retried with exponential backoff; every other kind is returned at once.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if c.apiKey == "" {
		return dclierr.MissingAPIKey()
	}

	backoff := c.backoff
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		var throttle time.Duration
		throttle, err = c.call(ctx, path, out)
		if err == nil || !dclierr.KindOf(err).Retryable() || attempt == c.maxAttempts {
			break
		}
		wait := backoff
		if throttle > wait {
			wait = throttle
		}
		log.Warn().Err(err).Str("path", path).Int("attempt", attempt).Int("max_attempts", c.maxAttempts).
			Dur("wait", wait).Msg("API unavailable, retrying...")
		if serr := c.sleep(ctx, wait); serr != nil {
			return dclierr.FromTransport(serr)
		}
		backoff *= 2
	}
	return err
}

// call performs one request. The returned duration is the server's
// ThrottleSeconds hint.
func (c *Client) call(ctx context.Context, path string, out any) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to create HTTP request object")
		return 0, dclierr.FromTransport(err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	log.Debug().Str("url", req.URL.String()).Msg("Sending HTTP request")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", req.URL.String()).Msg("HTTP request failed")
		return 0, dclierr.FromTransport(err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return 0, dclierr.FromTransport(err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if !isOK(resp.StatusCode) {
			return 0, statusFailure(resp.StatusCode, body)
		}
		log.Error().Err(err).Str("body_preview", preview(body)).Msg("Failed to parse response envelope")
		return 0, dclierr.FromParse(err)
	}
	throttle := time.Duration(env.ThrottleSeconds) * time.Second

	if env.ErrorCode == ErrorCodeNone && !isOK(resp.StatusCode) {
		return throttle, statusFailure(resp.StatusCode, body)
	}
	if ferr := platformFailure(env); ferr != nil {
		log.Error().Int("error_code", int(env.ErrorCode)).Str("status", env.ErrorStatus).
			Str("message", env.Message).Msg("API returned an error status")
		return throttle, ferr
	}
	if out == nil || len(env.Response) == 0 {
		return throttle, nil
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		log.Error().Err(err).Str("body_preview", preview(env.Response)).Msg("Failed to parse response payload")
		return throttle, dclierr.FromParse(err)
	}
	return throttle, nil
}

// platformFailure maps an envelope's ErrorCode into the taxonomy; nil on success.
func platformFailure(env envelope) *dclierr.Error {
	switch env.ErrorCode {
	case ErrorCodeSuccess, ErrorCodeNone:
		return nil
	case ErrorCodeSystemDisabled:
		return dclierr.APIUnavailable()
	case ErrorCodeParameterParseFailure:
		return dclierr.ParameterParse()
	case ErrorCodeInvalidParameters:
		return dclierr.InvalidParameters()
	case ErrorCodeDestinyPrivacyRestriction:
		return dclierr.Privacy()
	case ErrorCodeAPIKeyMissingFromRequest:
		return dclierr.MissingAPIKey()
	default:
		return dclierr.APIStatus(fmt.Sprintf("%s (code %d): %s", env.ErrorStatus, int(env.ErrorCode), env.Message))
	}
}

// statusFailure classifies a non-2xx reply that carried no usable envelope.
func statusFailure(status int, body []byte) *dclierr.Error {
	if status == http.StatusServiceUnavailable {
		return dclierr.APIUnavailable()
	}
	return dclierr.APIStatus(fmt.Sprintf("unexpected HTTP status: %d %s. Body: %s",
		status, http.StatusText(status), preview(body)))
}

func isOK(status int) bool { return status >= 200 && status < 300 }

func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read response body")
		return nil, err
	}
	return body, nil
}

func preview(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
