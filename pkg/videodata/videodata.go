package videodata

import (
	"context"
	"errors"
	"fmt"
)

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

// Get resolves a video reference to its metadata. A reference that resolves
// is playable; anything else is reported as ErrVideoNotFound.
func Get(ctx context.Context, videoId string) (*VideoData, error) {
	videoData, err := getVideoWithEmbed(ctx, videoId)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = getFromPage(ctx, videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return videoData, nil
}
