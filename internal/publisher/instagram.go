package publisher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"frameworks/herald/internal/platform"
)

const defaultInstagramURL = "https://graph.instagram.com/v19.0"

// InstagramClient publishes through the two-step container flow. Instagram
// fetches media itself, so only public URLs can be posted.
type InstagramClient struct {
	api apiClient
}

func NewInstagramClient(cfg ClientConfig) *InstagramClient {
	return &InstagramClient{api: newAPIClient(platform.Instagram, defaultInstagramURL, cfg)}
}

func (c *InstagramClient) PostText(context.Context, string, string) (string, error) {
	return "", &APIError{Platform: platform.Instagram, Message: "text-only posts are not supported; attach an image or video"}
}

func (c *InstagramClient) PostPhoto(ctx context.Context, token, content, media string) (string, error) {
	return c.publish(ctx, token, media, url.Values{"image_url": {media}, "caption": {content}})
}

func (c *InstagramClient) PostVideo(ctx context.Context, token, content, media string) (string, error) {
	return c.publish(ctx, token, media, url.Values{"video_url": {media}, "media_type": {"REELS"}, "caption": {content}})
}

func (c *InstagramClient) publish(ctx context.Context, token, media string, container url.Values) (string, error) {
	if !isRemote(media) {
		return "", &APIError{Platform: platform.Instagram, Message: "media must be a publicly reachable URL"}
	}

	userID, err := c.userID(ctx, token)
	if err != nil {
		return "", err
	}

	container.Set("access_token", token)
	created, err := c.api.postForm(ctx, "/"+userID+"/media", container)
	if err != nil {
		return "", err
	}
	creationID := stringField(created, "id")
	if creationID == "" {
		return "", ErrNoPostID
	}

	published, err := c.api.postForm(ctx, "/"+userID+"/media_publish", url.Values{
		"creation_id":  {creationID},
		"access_token": {token},
	})
	if err != nil {
		return "", err
	}
	return postID(published)
}

func (c *InstagramClient) userID(ctx context.Context, token string) (string, error) {
	query := url.Values{"fields": {"id"}, "access_token": {token}}.Encode()
	out, _, err := c.api.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.api.baseURL+"/me?"+query, nil)
	})
	if err != nil {
		return "", err
	}
	id := stringField(out, "user_id", "id")
	if id == "" {
		return "", fmt.Errorf("instagram account id missing from /me response")
	}
	return id, nil
}
