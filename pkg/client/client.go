package client

import (
	"net/http"
	"os"
	"strings"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/ptr"

	"github.com/walpredict/stock-optimizer/pkg/rest"
)

// Client of the stock optimizer REST server
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    wait.Backoff
}

// Client options; unset fields take defaults
type Options struct {
	HTTPClient *http.Client
	Backoff    *wait.Backoff
}

func NewClient(baseURL string, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	if opts.Backoff == nil {
		opts.Backoff = ptr.To(DefaultBackoff)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: opts.HTTPClient,
		backoff:    *opts.Backoff,
	}
}

// Create a client for the server named by the environment: the full URL if
// set, otherwise the REST server host and port
func NewClientFromEnv(opts Options) *Client {
	if url := os.Getenv(OptimizerURLEnvName); url != "" {
		return NewClient(url, opts)
	}
	var host, port string
	if host = os.Getenv(rest.RestHostEnvName); host == "" || host == rest.DefaultRestHost {
		host = "localhost"
	}
	if port = os.Getenv(rest.RestPortEnvName); port == "" {
		port = rest.DefaultRestPort
	}
	return NewClient("http://"+host+":"+port, opts)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}
