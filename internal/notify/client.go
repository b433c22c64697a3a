// Package notify fetches and mutates the brand/influencer notification
// feeds. Mutations are applied to the local view first and rolled back when
// the backend rejects them.
package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/collabry/collabry-go/internal/httpx"
	"github.com/collabry/collabry-go/internal/models"
)

// Client talks to one role's notification endpoints. Brand and influencer
// feeds share the same contract under different prefixes.
type Client struct {
	http *httpx.Client
	base string
	log  zerolog.Logger
}

func NewClient(http *httpx.Client, role string, log zerolog.Logger) *Client {
	return &Client{
		http: http,
		base: "/api/v1/" + role + "/notifications",
		log:  log,
	}
}

// Page is one slice of the feed.
type Page struct {
	Items []models.Notification `json:"items"`
	Total int                   `json:"total"`
}

func (c *Client) List(ctx context.Context, page, size int) (*Page, error) {
	var out Page
	path := fmt.Sprintf("%s?page=%d&size=%d", c.base, page, size)
	if err := c.http.GetJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.http.PatchJSON(ctx, c.base+"/mark-read", map[string]string{"id": id}, nil)
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.http.PostJSON(ctx, c.base+"/mark-all-read", nil, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.http.DeleteJSON(ctx, c.base+"?id="+url.QueryEscape(id), nil)
}
