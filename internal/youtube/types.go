// Package youtube provides the video-platform adapter backed by the YouTube
// Data API v3.
//
// This package enables packfeed to:
// - Fetch the most recent videos of a channel with an API key
// - Fetch a set of channels concurrently, each unique channel once
// - Normalize search results into content.Item values
package youtube

// API response types (private - implementation detail)

type searchResponse struct {
	Items []searchItem `json:"items"`
	Error *apiError    `json:"error"`
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		ChannelID    string `json:"channelId"`
		ChannelTitle string `json:"channelTitle"`
		PublishedAt  string `json:"publishedAt"`
		Thumbnails   struct {
			Medium struct {
				URL string `json:"url"`
			} `json:"medium"`
		} `json:"thumbnails"`
	} `json:"snippet"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
