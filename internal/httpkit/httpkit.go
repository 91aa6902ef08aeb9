// Package httpkit builds outbound HTTP clients from an explicit chain of
// interceptors. Every outbound call of the service (model endpoint, record
// sink, identity provider) goes through a client built here, so request
// tracing is a property of the client rather than of the call site.
package httpkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultDialTimeout         = 10 * time.Second
	DefaultKeepAlive           = 30 * time.Second
	DefaultTLSHandshakeTimeout = 10 * time.Second
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultMaxIdleConns        = 20
	DefaultMaxIdleConnsPerHost = 5

	// DefaultUserAgent identifies the service on outbound calls.
	DefaultUserAgent = "supportdesk/1.0"
)

// Interceptor wraps one round trip. It must call next exactly once unless it
// fails the request itself.
type Interceptor func(req *http.Request, next http.RoundTripper) (*http.Response, error)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// Chain composes interceptors around base. The first interceptor is outermost.
func Chain(base http.RoundTripper, interceptors ...Interceptor) http.RoundTripper {
	if base == nil {
		base = NewTransport()
	}
	rt := base
	for i := len(interceptors) - 1; i >= 0; i-- {
		ic := interceptors[i]
		if ic == nil {
			continue
		}
		next := rt
		rt = RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return ic(req, next)
		})
	}
	return rt
}

// NewTransport creates an http.Transport with conservative pool limits.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   DefaultDialTimeout,
			KeepAlive: DefaultKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout: DefaultTLSHandshakeTimeout,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		ForceAttemptHTTP2:   true,
	}
}

// NewClient builds an *http.Client. A zero timeout disables the client deadline,
// which streaming responses need.
func NewClient(timeout time.Duration, interceptors ...Interceptor) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: Chain(NewTransport(), interceptors...),
	}
}

// Logging records method, host, path, status and latency of every request at debug
// level, and failures at warn.
func Logging(log *slog.Logger, component string) Interceptor {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", component))
	return func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(req)
		attrs := []any{
			slog.String("method", req.Method),
			slog.String("host", req.URL.Host),
			slog.String("path", req.URL.Path),
			slog.Duration("latency", time.Since(start)),
		}
		if err != nil {
			log.Warn("outbound request failed", append(attrs, slog.Any("error", err))...)
			return resp, err
		}
		attrs = append(attrs, slog.Int("status", resp.StatusCode))
		if resp.StatusCode >= http.StatusBadRequest {
			log.Warn("outbound request returned error status", attrs...)
		} else {
			log.Debug("outbound request", attrs...)
		}
		return resp, nil
	}
}

// UserAgent sets the User-Agent header unless the caller already set one.
func UserAgent(ua string) Interceptor {
	if strings.TrimSpace(ua) == "" {
		ua = DefaultUserAgent
	}
	return func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		if req.Header.Get("User-Agent") == "" {
			req = req.Clone(req.Context())
			req.Header.Set("User-Agent", ua)
		}
		return next.RoundTrip(req)
	}
}

// InjectJSON merges fields into JSON object request bodies whose path ends with
// one of pathSuffixes. Keys already present in the body are left alone. Other
// requests pass through untouched.
func InjectJSON(fields map[string]any, pathSuffixes ...string) Interceptor {
	return func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		if len(fields) == 0 || req.Body == nil || req.Body == http.NoBody || !matchSuffix(req.URL.Path, pathSuffixes) {
			return next.RoundTrip(req)
		}
		if !strings.Contains(req.Header.Get("Content-Type"), "json") {
			return next.RoundTrip(req)
		}
		raw, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		body := raw
		var payload map[string]any
		if json.Unmarshal(raw, &payload) == nil && payload != nil {
			for k, v := range fields {
				if _, exists := payload[k]; !exists {
					payload[k] = v
				}
			}
			if merged, err := json.Marshal(payload); err == nil {
				body = merged
			}
		}
		out := req.Clone(req.Context())
		out.Body = io.NopCloser(bytes.NewReader(body))
		out.ContentLength = int64(len(body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		return next.RoundTrip(out)
	}
}

func matchSuffix(path string, suffixes []string) bool {
	if len(suffixes) == 0 {
		return true
	}
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// DrainAndClose reads up to limit bytes from rc and closes it so the
// connection can return to the pool.
func DrainAndClose(rc io.ReadCloser, limit int64) {
	if rc == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, limit))
	_ = rc.Close()
}

// ReadErrorBody reads up to limit bytes from rc for error messages,
// then drains and closes the remainder.
func ReadErrorBody(rc io.ReadCloser, limit int64) string {
	if rc == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(rc, limit))
	DrainAndClose(rc, 1024)
	if err != nil {
		return fmt.Sprintf("(failed to read error body: %v)", err)
	}
	return string(body)
}
