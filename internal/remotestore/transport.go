// Package remotestore is an HTTP-backed implementation of
// buildrecord.RemoteTransport: GET/PUT/HEAD over a configurable remote
// build-cache endpoint, with retry-with-backoff for transient failures and
// failFast-gated error propagation.
package remotestore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	ferrors "git.home.luguber.info/inful/reactorcache/internal/foundation/errors"
	"git.home.luguber.info/inful/reactorcache/internal/logfields"
	"git.home.luguber.info/inful/reactorcache/internal/retry"
)

// Credentials is the basic-auth pair a server ID resolves to, the
// session-servers seam of spec §6.
type Credentials struct {
	Username string
	Password string
}

// CredentialResolver looks up credentials for a remote.id, as the host
// session's server records would.
type CredentialResolver interface {
	Resolve(serverID string) (Credentials, bool)
}

// Transport is an HTTP client wrapping net/http with the teacher's
// withRetry idiom: retry transient failures per a retry.Policy, classify
// permanent failures (auth, not-found) to skip retries entirely.
type Transport struct {
	client    *http.Client
	policy    retry.Policy
	failFast  bool
	serverID  string
	creds     CredentialResolver
	logger    *slog.Logger
}

// Option configures a Transport at construction.
type Option func(*Transport)

// WithPolicy overrides the default retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(t *Transport) { t.policy = p }
}

// WithFailFast sets whether a TransportError after retries is propagated
// (true) or swallowed and logged (false), per spec §4.8.
func WithFailFast(failFast bool) Option {
	return func(t *Transport) { t.failFast = failFast }
}

// WithCredentials attaches a server-id-keyed credential resolver.
func WithCredentials(serverID string, resolver CredentialResolver) Option {
	return func(t *Transport) {
		t.serverID = serverID
		t.creds = resolver
	}
}

// WithHTTPClient overrides the underlying *http.Client (e.g. for a proxy).
func WithHTTPClient(client *http.Client) Option {
	return func(t *Transport) { t.client = client }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

// New constructs a Transport with sensible defaults: retry.DefaultPolicy,
// failFast disabled, a 30s-timeout http.Client.
func New(opts ...Option) *Transport {
	t := &Transport{
		client:   &http.Client{Timeout: 30 * time.Second},
		policy:   retry.DefaultPolicy(),
		failFast: false,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) authenticate(req *http.Request) {
	if t.creds == nil || t.serverID == "" {
		return
	}
	if creds, ok := t.creds.Resolve(t.serverID); ok {
		req.SetBasicAuth(creds.Username, creds.Password)
	}
}

// Get fetches url's body. A 404 response is reported as a nil body with a nil
// error (spec §4.8's "NotFound returns empty"), not an error.
func (t *Transport) Get(url string) ([]byte, error) {
	var body []byte
	err := t.withRetry("GET", url, func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		t.authenticate(req)

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			body = nil
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return permanentError{ferrors.CacheTransportError("unauthorized fetching " + url).Build()}
		case resp.StatusCode >= 400:
			return ferrors.CacheTransportError("GET " + url + " returned " + resp.Status).Build()
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, t.classify(err)
	}
	return body, nil
}

// Put uploads data to url.
func (t *Transport) Put(url string, data []byte) error {
	err := t.withRetry("PUT", url, func() error {
		req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
		if err != nil {
			return err
		}
		t.authenticate(req)
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return permanentError{ferrors.CacheTransportError("unauthorized uploading to " + url).Build()}
		}
		if resp.StatusCode >= 400 {
			return ferrors.CacheTransportError("PUT " + url + " returned " + resp.Status).Build()
		}
		return nil
	})
	return t.classify(err)
}

// Head reports whether url exists.
func (t *Transport) Head(url string) (bool, error) {
	var exists bool
	err := t.withRetry("HEAD", url, func() error {
		req, err := http.NewRequest(http.MethodHead, url, nil)
		if err != nil {
			return err
		}
		t.authenticate(req)

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			exists = false
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			exists = true
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return permanentError{ferrors.CacheTransportError("unauthorized checking " + url).Build()}
		default:
			return ferrors.CacheTransportError("HEAD " + url + " returned " + resp.Status).Build()
		}
		return nil
	})
	if err != nil {
		return false, t.classify(err)
	}
	return exists, nil
}

// permanentError marks an error as non-retryable, mirroring the teacher's
// isPermanentGitError short-circuit.
type permanentError struct{ error }

func (p permanentError) Unwrap() error { return p.error }

// withRetry mirrors the teacher's Client.withRetry: retry transient
// failures per policy, short-circuit on a permanent classification.
func (t *Transport) withRetry(op, url string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= t.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			t.logger.Warn("retrying remote cache operation",
				slog.String("operation", op), logfields.URL(url), slog.Int("attempt", attempt))
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var perm permanentError
		if errors.As(err, &perm) {
			return perm.error
		}
		if !isRetryable(err) {
			return err
		}
		if attempt == t.policy.MaxRetries {
			break
		}
		time.Sleep(t.policy.Delay(attempt + 1))
	}
	return lastErr
}

func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// classify applies the failFast policy: on failure, propagate if failFast,
// otherwise log and return a nil error with an empty result (spec §4.8).
func (t *Transport) classify(err error) error {
	if err == nil {
		return nil
	}
	if t.failFast {
		return err
	}
	t.logger.Warn("remote cache transport error, continuing without remote", logfields.KeyError, err)
	return nil
}
