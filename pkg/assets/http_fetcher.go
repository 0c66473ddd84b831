package assets

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPFetcher retrieves assets over plain HTTP(S) GET. A model hub's
// download surface is a single streamed GET per file — there is no
// protocol negotiation, retry policy, or auth scheme rich enough in this
// domain to warrant a dedicated HTTP client library; net/http's default
// client with a bounded timeout is the whole requirement.
type HTTPFetcher struct {
	Client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: 10 * time.Minute}}
}

func (f *HTTPFetcher) Fetch(hub, relPath string) (io.ReadCloser, error) {
	url := strings.TrimRight(hub, "/") + "/" + strings.TrimLeft(relPath, "/")
	resp, err := f.Client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}
