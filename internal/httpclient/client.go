package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Crackgo/internal/logger"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// DefaultUserAgent is sent when no custom User-Agent is configured.
const DefaultUserAgent = "crackgo"

// Client represents the HTTP client used to talk to the target, encapsulating http.Client and custom behaviors.
// It never retries: a failed request is reported to the caller as-is.
type Client struct {
	httpClient *http.Client      // The underlying standard HTTP client.
	logger     *logger.Logger    // Logger for client-related messages.
	userAgent  string            // Custom User-Agent header for requests.
	headers    map[string]string // Extra headers added to every request.
}

// ClientOptions holds configuration parameters for initializing the HTTP Client.
type ClientOptions struct {
	Timeout            time.Duration     // Timeout for HTTP requests.
	FollowRedirects    bool              // Whether to follow HTTP redirects.
	InsecureSkipVerify bool              // Whether to skip TLS certificate verification.
	UserAgent          string            // Custom User-Agent string.
	Headers            map[string]string // Static headers added to every request.
	Proxy              string            // Optional proxy URL (http, https or socks5).
}

// NewClient creates and returns a new HTTP client instance with specified options.
func NewClient(log *logger.Logger, opts ClientOptions) (*Client, error) {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	// TLS verification is off by default: targets under test commonly use self-signed certificates.
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify},
	}
	if opts.InsecureSkipVerify {
		log.Debug("TLS certificate verification is disabled.")
	}

	if opts.Proxy != "" {
		if err := configureProxy(transport, opts.Proxy); err != nil {
			return nil, err
		}
		log.Info("Routing requests through proxy %s", opts.Proxy)
	}

	client := &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		logger:    log,
		userAgent: opts.UserAgent,
		headers:   opts.Headers,
	}

	if len(opts.Headers) > 0 {
		log.Debug("%d static request header(s) configured.", len(opts.Headers))
	}

	client.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if !opts.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= 10 {
			log.Warn("Exceeded maximum redirects (10).")
			return http.ErrUseLastResponse
		}
		return nil
	}
	return client, nil
}

// configureProxy points the transport at an HTTP(S) proxy or a SOCKS5 dialer.
func configureProxy(transport *http.Transport, raw string) error {
	proxyURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}

	switch strings.ToLower(proxyURL.Scheme) {
	case "http", "https":
		transport.Proxy = http.ProxyURL(proxyURL)
		return nil
	case "socks5", "socks5h":
		dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
		if err != nil {
			return fmt.Errorf("invalid SOCKS5 proxy %q: %w", raw, err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported proxy scheme %q (use http, https or socks5)", proxyURL.Scheme)
	}
}

// Do performs an HTTP request after setting the User-Agent and static headers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	c.logger.Trace("Sending request: %s %s", req.Method, req.URL.String())
	return c.httpClient.Do(req)
}

// Post performs an HTTP POST request using the custom client.
func (c *Client) Post(ctx context.Context, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return c.Do(req)
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// GetClient returns the underlying standard http.Client instance.
func (c *Client) GetClient() *http.Client {
	return c.httpClient
}
