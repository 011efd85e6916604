package proxy

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
)

const maxRedirects = 10

// redirectTransport resolves upstream redirects before the response reaches
// the panel, so the browsing context never sees the upstream origin.
type redirectTransport struct {
	client *http.Client
}

func newRedirectTransport(base http.RoundTripper) *redirectTransport {
	return &redirectTransport{
		client: &http.Client{
			Transport: base,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

func (t *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	// Client.Do rejects server-side requests.
	out.RequestURI = ""
	return t.client.Do(out)
}

// newTransport returns the upstream round tripper.
func newTransport(followRedirects bool) http.RoundTripper {
	base := cleanhttp.DefaultPooledTransport()
	if !followRedirects {
		return base
	}
	return newRedirectTransport(base)
}
