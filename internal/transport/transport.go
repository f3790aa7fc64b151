// Package transport builds the HTTP clients used to reach the backend,
// honoring an optional outbound proxy and TLS settings.
package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 30 * time.Second

// ProxyConfig holds outbound proxy settings.
type ProxyConfig struct {
	URL     string `yaml:"url,omitempty"`      // http://, https://, or socks5:// proxy URL
	NoProxy string `yaml:"no_proxy,omitempty"` // comma-separated hosts that bypass the proxy
}

// Options configures NewClient.
type Options struct {
	Timeout time.Duration
	Proxy   ProxyConfig
	TLS     *TLSConfig
}

// NewClient returns an *http.Client for backend calls.
func NewClient(opts Options) (*http.Client, error) {
	rt, err := buildTransport(opts)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}, nil
}

func buildTransport(opts Options) (http.RoundTripper, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	tlsConfig, err := opts.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("configuring TLS: %w", err)
	}
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}

	if opts.Proxy.URL == "" {
		return transport, nil
	}

	parsed, err := url.Parse(opts.Proxy.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing proxy URL: %w", err)
	}
	noProxyHosts := parseNoProxy(opts.Proxy.NoProxy)

	switch parsed.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			auth = &proxy.Auth{
				User:     parsed.User.Username(),
				Password: password,
			}
		}
		dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("creating SOCKS5 dialer: %w", err)
		}
		direct := &net.Dialer{Timeout: 10 * time.Second}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, _ := net.SplitHostPort(addr)
			if shouldBypassProxy(host, noProxyHosts) {
				return direct.DialContext(ctx, network, addr)
			}
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	case "http", "https":
		transport.Proxy = func(r *http.Request) (*url.URL, error) {
			if shouldBypassProxy(r.URL.Hostname(), noProxyHosts) {
				return nil, nil
			}
			return parsed, nil
		}
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", parsed.Scheme)
	}

	return transport, nil
}

// parseNoProxy splits a comma-separated no-proxy string into trimmed host entries.
func parseNoProxy(noProxy string) []string {
	if noProxy == "" {
		return nil
	}
	parts := strings.Split(noProxy, ",")
	hosts := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			hosts = append(hosts, strings.ToLower(p))
		}
	}
	return hosts
}

// shouldBypassProxy checks whether a host should bypass the proxy.
// Entries starting with a dot match any subdomain.
func shouldBypassProxy(host string, noProxyHosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range noProxyHosts {
		if h == host {
			return true
		}
		if strings.HasPrefix(h, ".") && strings.HasSuffix(host, h) {
			return true
		}
	}
	return false
}
