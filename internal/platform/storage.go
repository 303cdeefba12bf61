package platform

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

type StorageObject struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata"`
}

type ListOptions struct {
	Prefix string
	Limit  int
	Offset int
}

func (c *Client) Upload(ctx context.Context, accessToken string, bucket string, objectPath string, contentType string, body io.Reader, upsert bool) error {
	headers := map[string]string{}
	if upsert {
		headers["x-upsert"] = "true"
	}
	return c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/storage/v1/object/" + bucket + "/" + cleanObjectPath(objectPath),
		token:       accessToken,
		body:        body,
		contentType: contentType,
		headers:     headers,
	}, nil)
}

func (c *Client) List(ctx context.Context, accessToken string, bucket string, opts ListOptions) ([]StorageObject, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	body := map[string]any{
		"prefix": opts.Prefix,
		"limit":  opts.Limit,
		"offset": opts.Offset,
		"sortBy": map[string]string{"column": "name", "order": "asc"},
	}

	objects := make([]StorageObject, 0)
	if err := c.doJSON(ctx, http.MethodPost, "/storage/v1/object/list/"+bucket, nil, accessToken, body, &objects); err != nil {
		return nil, err
	}
	return objects, nil
}

func (c *Client) PublicURL(bucket string, objectPath string) string {
	return c.endpoint("/storage/v1/object/public/"+bucket+"/"+cleanObjectPath(objectPath), nil)
}

// cleanObjectPath leaves escaping to url.URL when the endpoint is rendered.
func cleanObjectPath(p string) string {
	return strings.Trim(p, "/")
}
