// Package apiclient is a minimal JSON/HTTP implementation of the
// remote collaborator ports: the social graph, per-author timelines,
// post publishing and the mutation endpoints. The engine packages
// only see the domain interfaces.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/roach88/postr/internal/domain"
)

// Client talks to the postr server API. It implements
// domain.TimelineSource, domain.SocialGraph, domain.Mutator and
// domain.Publisher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authToken  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAuthToken sets the bearer token attached to every request.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.authToken = token }
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchAuthorTimeline implements domain.TimelineSource.
func (c *Client) FetchAuthorTimeline(ctx context.Context, authorID string) ([]domain.Post, error) {
	var posts []domain.Post
	path := "/v1/authors/" + url.PathEscape(authorID) + "/timeline"
	if err := c.get(ctx, path, &posts); err != nil {
		return nil, fmt.Errorf("fetch author timeline: %w", err)
	}
	return posts, nil
}

// FollowedAuthorIDs implements domain.SocialGraph.
func (c *Client) FollowedAuthorIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	path := "/v1/users/" + url.PathEscape(userID) + "/following"
	if err := c.get(ctx, path, &ids); err != nil {
		return nil, fmt.Errorf("fetch followed authors: %w", err)
	}
	return ids, nil
}

// PublishPost implements domain.Publisher.
func (c *Client) PublishPost(ctx context.Context, post domain.Post) error {
	if err := c.post(ctx, "/v1/posts", post, nil); err != nil {
		return fmt.Errorf("publish post: %w", err)
	}
	return nil
}

// React implements domain.Mutator.
func (c *Client) React(ctx context.Context, postID string, action domain.ReactionAction) error {
	body := map[string]string{"action": string(action)}
	path := "/v1/posts/" + url.PathEscape(postID) + "/reaction"
	if err := c.post(ctx, path, body, nil); err != nil {
		return fmt.Errorf("react: %w", err)
	}
	return nil
}

// Repost implements domain.Mutator.
func (c *Client) Repost(ctx context.Context, postID string) error {
	path := "/v1/posts/" + url.PathEscape(postID) + "/repost"
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("repost: %w", err)
	}
	return nil
}

// ToggleBookmark implements domain.Mutator.
func (c *Client) ToggleBookmark(ctx context.Context, postID string) error {
	path := "/v1/posts/" + url.PathEscape(postID) + "/bookmark"
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("toggle bookmark: %w", err)
	}
	return nil
}

// VotePoll implements domain.Mutator.
func (c *Client) VotePoll(ctx context.Context, postID string, choiceIndex int) error {
	body := map[string]int{"choice_index": choiceIndex}
	path := "/v1/posts/" + url.PathEscape(postID) + "/poll-vote"
	if err := c.post(ctx, path, body, nil); err != nil {
		return fmt.Errorf("vote poll: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(payload))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
