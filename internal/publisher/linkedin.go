package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"frameworks/herald/internal/platform"
)

const defaultLinkedInURL = "https://api.linkedin.com"

// LinkedInClient shares member posts. Media uploads are not supported, so
// photo and video posts go out as text.
type LinkedInClient struct {
	api apiClient
}

func NewLinkedInClient(cfg ClientConfig) *LinkedInClient {
	return &LinkedInClient{api: newAPIClient(platform.LinkedIn, defaultLinkedInURL, cfg)}
}

func (c *LinkedInClient) PostText(ctx context.Context, token, content string) (string, error) {
	author, err := c.author(ctx, token)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(ugcPost{
		Author:         author,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]shareContent{
			"com.linkedin.ugc.ShareContent": {
				ShareCommentary:    shareCommentary{Text: content},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal linkedin post: %w", err)
	}

	out, header, err := c.api.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.api.baseURL+"/v2/ugcPosts", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
		return req, nil
	})
	if err != nil {
		return "", err
	}
	if id := header.Get("X-RestLi-Id"); id != "" {
		return id, nil
	}
	return postID(out)
}

func (c *LinkedInClient) PostPhoto(ctx context.Context, token, content, _ string) (string, error) {
	return c.PostText(ctx, token, content)
}

func (c *LinkedInClient) PostVideo(ctx context.Context, token, content, _ string) (string, error) {
	return c.PostText(ctx, token, content)
}

func (c *LinkedInClient) author(ctx context.Context, token string) (string, error) {
	out, _, err := c.api.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.api.baseURL+"/v2/userinfo", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return req, nil
	})
	if err != nil {
		return "", err
	}
	sub := stringField(out, "sub")
	if sub == "" {
		return "", fmt.Errorf("linkedin userinfo returned no subject")
	}
	return "urn:li:person:" + sub, nil
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

type shareContent struct {
	ShareCommentary    shareCommentary `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
}

type shareCommentary struct {
	Text string `json:"text"`
}
