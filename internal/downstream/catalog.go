package downstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/nextstep/nextstep-bff/internal/domain"
)

// CatalogClient reads the public listings behind the dashboards.
type CatalogClient struct {
	client *Client
}

func NewCatalogClient(c *Client) *CatalogClient {
	return &CatalogClient{client: c}
}

// Courses lists /lms/courses/. q carries DRF filters such as search or ordering.
func (c *CatalogClient) Courses(ctx context.Context, q url.Values) (domain.Page[domain.Course], error) {
	return list[domain.Course](ctx, c.client, "/lms/courses/", q)
}

func (c *CatalogClient) CareerPaths(ctx context.Context, q url.Values) (domain.Page[domain.CareerPath], error) {
	return list[domain.CareerPath](ctx, c.client, "/career/career-paths/", q)
}

func (c *CatalogClient) Jobs(ctx context.Context, q url.Values) (domain.Page[domain.JobListing], error) {
	return list[domain.JobListing](ctx, c.client, "/jobs/jobs/", q)
}

func (c *CatalogClient) LearningResources(ctx context.Context, q url.Values) (domain.Page[domain.LearningResource], error) {
	return list[domain.LearningResource](ctx, c.client, "/learning/resources/", q)
}

func list[T any](ctx context.Context, c *Client, path string, q url.Values) (domain.Page[T], error) {
	var page domain.Page[T]
	if err := c.doJSON(ctx, http.MethodGet, path, q, nil, &page); err != nil {
		return domain.Page[T]{}, err
	}
	return page, nil
}
