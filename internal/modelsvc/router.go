package modelsvc

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/pagemeta/internal/common"
)

// Router dispatches requests to a provider client chosen by the model id
// prefix. Providers whose credentials are not configured stay nil and any
// request routed to them fails with a configuration error.
type Router struct {
	providers map[string]Client
}

func NewRouter() *Router {
	return &Router{providers: map[string]Client{}}
}

// Register binds a provider name ("openai", "gemini") to a client.
func (r *Router) Register(provider string, c Client) *Router {
	r.providers[provider] = c
	return r
}

func (r *Router) Complete(ctx context.Context, req Request) (Response, error) {
	provider, name := SplitModelID(req.Model)
	target, ok := r.providers[provider]
	if !ok || target == nil {
		return Response{}, common.ConfigurationError(
			fmt.Sprintf("no client configured for model provider %q (model %q)", provider, req.Model), nil)
	}
	req.Model = name
	return target.Complete(ctx, req)
}
