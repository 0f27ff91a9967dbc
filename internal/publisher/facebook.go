package publisher

import (
	"context"
	"net/url"

	"frameworks/herald/internal/platform"
)

const defaultGraphURL = "https://graph.facebook.com/v19.0"

// FacebookClient posts to the requester's own feed through the Graph API.
type FacebookClient struct {
	api apiClient
}

func NewFacebookClient(cfg ClientConfig) *FacebookClient {
	return &FacebookClient{api: newAPIClient(platform.Facebook, defaultGraphURL, cfg)}
}

func (c *FacebookClient) PostText(ctx context.Context, token, content string) (string, error) {
	out, err := c.api.postForm(ctx, "/me/feed", url.Values{
		"message":      {content},
		"access_token": {token},
	})
	if err != nil {
		return "", err
	}
	return postID(out)
}

func (c *FacebookClient) PostPhoto(ctx context.Context, token, content, media string) (string, error) {
	form := url.Values{"message": {content}, "access_token": {token}}
	return c.postMedia(ctx, "/me/photos", form, "url", media)
}

func (c *FacebookClient) PostVideo(ctx context.Context, token, content, media string) (string, error) {
	form := url.Values{"description": {content}, "access_token": {token}}
	return c.postMedia(ctx, "/me/videos", form, "file_url", media)
}

func (c *FacebookClient) postMedia(ctx context.Context, path string, form url.Values, urlField, media string) (string, error) {
	var (
		out map[string]any
		err error
	)
	if isRemote(media) {
		form.Set(urlField, media)
		out, err = c.api.postForm(ctx, path, form)
	} else {
		out, err = c.api.postFile(ctx, path, form, "source", media)
	}
	if err != nil {
		return "", err
	}
	return postID(out)
}

func postID(out map[string]any) (string, error) {
	if id := stringField(out, "post_id", "id"); id != "" {
		return id, nil
	}
	return "", ErrNoPostID
}
