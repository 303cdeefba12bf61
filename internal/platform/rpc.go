package platform

import (
	"context"
	"net/http"
)

// CallRPC invokes a database function exposed by the platform's REST layer.
func (c *Client) CallRPC(ctx context.Context, accessToken string, fn string, params any, out any) error {
	if params == nil {
		params = map[string]any{}
	}
	return c.doJSON(ctx, http.MethodPost, "/rest/v1/rpc/"+fn, nil, accessToken, params, out)
}
