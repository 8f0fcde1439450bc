// Package ghost reads recipe posts from a Ghost CMS.
package ghost

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"diet-planner/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

const pageSize = 50

// Post represents a single recipe post from the Ghost API.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	HTML      string `json:"html"`
	UpdatedAt string `json:"updated_at"`
	Status    string `json:"status,omitempty"`
}

// PostsResponse is the top-level structure of the Ghost API response for posts.
type PostsResponse struct {
	Posts []Post `json:"posts"`
	Meta  struct {
		Pagination struct {
			Page  int  `json:"page"`
			Pages int  `json:"pages"`
			Next  *int `json:"next"`
		} `json:"pagination"`
	} `json:"meta"`
}

// Client is an interface for a Ghost API client.
type Client interface {
	FetchRecipes(ctx context.Context) ([]Post, error)
}

// ghostClient is the concrete implementation of the Ghost API client.
type ghostClient struct {
	httpClient *http.Client
	baseURL    string
	contentKey string
	adminKey   string
	tag        string
	useAdmin   bool
}

// NewClient creates a new Ghost API client. With GhostUseAdmin set, posts
// are read through the Admin API, which also returns drafts.
func NewClient(cfg *config.Config) Client {
	return &ghostClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.GhostURL, "/"),
		contentKey: cfg.GhostContentKey,
		adminKey:   cfg.GhostAdminKey,
		tag:        cfg.GhostRecipeTag,
		useAdmin:   cfg.GhostUseAdmin,
	}
}

// FetchRecipes fetches every post carrying the recipe tag, following
// pagination.
func (c *ghostClient) FetchRecipes(ctx context.Context) ([]Post, error) {
	var all []Post
	for page := 1; ; {
		resp, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Posts...)

		next := resp.Meta.Pagination.Next
		if next == nil || *next <= page {
			return all, nil
		}
		page = *next
	}
}

func (c *ghostClient) fetchPage(ctx context.Context, page int) (*PostsResponse, error) {
	q := url.Values{}
	q.Set("formats", "html")
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	if c.tag != "" {
		q.Set("filter", "tag:"+c.tag)
	}

	api := "content"
	if c.useAdmin {
		api = "admin"
	} else {
		q.Set("key", c.contentKey)
	}
	endpoint := fmt.Sprintf("%s/ghost/api/v3/%s/posts/?%s", c.baseURL, api, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.useAdmin {
		token, err := c.createAdminToken()
		if err != nil {
			return nil, fmt.Errorf("failed to create admin token: %w", err)
		}
		req.Header.Set("Authorization", "Ghost "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s api error: status %d", api, resp.StatusCode)
	}

	var postsResponse PostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&postsResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &postsResponse, nil
}

// createAdminToken generates a short-lived JWT for the Admin API.
func (c *ghostClient) createAdminToken() (string, error) {
	keyParts := strings.Split(c.adminKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}

	id := keyParts[0]
	secretHex := keyParts[1]

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/v3/admin/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
