// Package twitter provides the microblog adapter backed by the Twitter/X API v2.
//
// NOTE: reading user timelines requires an app bearer token with at least
// Basic API access. Without a token every fetch returns no posts.
package twitter

// API response types

type userLookupResponse struct {
	Data *user `json:"data"`
}

type user struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type timelineResponse struct {
	Data     []tweet `json:"data"`
	Includes struct {
		Users []user `json:"users"`
	} `json:"includes"`
}

type tweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
	AuthorID  string `json:"author_id"`
}
