package binance

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	RESTBaseURL   string
	VisionBaseURL string
	QuoteAsset    string

	// RegistryTimeout 用于 exchangeInfo，DataTimeout 用于 K 线与归档下载。
	RegistryTimeout time.Duration
	DataTimeout     time.Duration

	ProxyEnabled bool
	RESTProxyURL string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = "https://api.binance.com"
	}
	out.VisionBaseURL = strings.TrimSpace(out.VisionBaseURL)
	if out.VisionBaseURL == "" {
		out.VisionBaseURL = "https://data.binance.vision"
	}
	out.QuoteAsset = strings.ToUpper(strings.TrimSpace(out.QuoteAsset))
	if out.QuoteAsset == "" {
		out.QuoteAsset = "USDT"
	}
	if out.RegistryTimeout <= 0 {
		out.RegistryTimeout = 10 * time.Second
	}
	if out.DataTimeout <= 0 {
		out.DataTimeout = 30 * time.Second
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	return out
}

func (c Config) newHTTPClient(timeout time.Duration) (*http.Client, error) {
	client := &http.Client{Timeout: timeout}
	if c.ProxyEnabled && c.RESTProxyURL != "" {
		proxyURL, err := url.Parse(c.RESTProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		client.Transport = transport
	}
	return client, nil
}
