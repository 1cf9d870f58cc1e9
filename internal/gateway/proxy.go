package gateway

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/joao-fontenele/foodflow/internal/identity"
)

const HeaderRequestID = "X-Request-ID"

type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string, client *http.Client) *ServiceProxy {
	return &ServiceProxy{
		baseURL: baseURL,
		client:  client,
	}
}

// ForwardRequest replays r against the backing service at path, keeping the
// query string, content type and identity headers. A request id is minted
// when the client did not send one.
func (p *ServiceProxy) ForwardRequest(ctx context.Context, r *http.Request, path string) (*http.Response, error) {
	target := p.baseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return nil, err
	}

	for _, h := range []string{"Content-Type", identity.HeaderUserID, identity.HeaderRole} {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	requestID := r.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(HeaderRequestID, requestID)

	return p.client.Do(req)
}
