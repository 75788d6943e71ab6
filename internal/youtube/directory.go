package youtube

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
)

// ChannelInfo is a channel the linked token grants access to.
type ChannelInfo struct {
	ID                string
	Title             string
	ThumbnailURL      string
	UploadsPlaylistID string
	Subscribers       int64
	Views             int64
}

// Directory lists the channels and identity behind an access token.
type Directory struct {
	Options []option.ClientOption
}

func clientOptions(accessToken string, extra []option.ClientOption) []option.ClientOption {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	opts := []option.ClientOption{option.WithTokenSource(source)}
	return append(opts, extra...)
}

func (d *Directory) MineChannels(ctx context.Context, accessToken string) ([]ChannelInfo, error) {
	svc, err := youtubeapi.NewService(ctx, clientOptions(accessToken, d.Options)...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	channels := []ChannelInfo{}
	call := svc.Channels.List([]string{"snippet", "statistics", "contentDetails"}).Mine(true).MaxResults(50)
	err = call.Pages(ctx, func(resp *youtubeapi.ChannelListResponse) error {
		for _, item := range resp.Items {
			channels = append(channels, channelInfo(item))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

func channelInfo(item *youtubeapi.Channel) ChannelInfo {
	info := ChannelInfo{ID: item.Id}
	if item.Snippet != nil {
		info.Title = item.Snippet.Title
		if thumbs := item.Snippet.Thumbnails; thumbs != nil {
			switch {
			case thumbs.Medium != nil:
				info.ThumbnailURL = thumbs.Medium.Url
			case thumbs.Default != nil:
				info.ThumbnailURL = thumbs.Default.Url
			}
		}
	}
	if item.Statistics != nil {
		info.Subscribers = int64(item.Statistics.SubscriberCount)
		info.Views = int64(item.Statistics.ViewCount)
	}
	if item.ContentDetails != nil && item.ContentDetails.RelatedPlaylists != nil {
		info.UploadsPlaylistID = item.ContentDetails.RelatedPlaylists.Uploads
	}
	return info
}

// AccountEmail resolves the Google account email behind the token.
func (d *Directory) AccountEmail(ctx context.Context, accessToken string) (string, error) {
	svc, err := oauth2api.NewService(ctx, clientOptions(accessToken, d.Options)...)
	if err != nil {
		return "", fmt.Errorf("oauth2 service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("userinfo: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo: empty email")
	}
	return info.Email, nil
}
