package reddit

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	kindComment = "t1"
	kindPost    = "t3"
	kindMore    = "more"
)

// Post is a submission as returned by the listing endpoints
type Post struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	Subreddit     string               `json:"subreddit"`
	Title         string               `json:"title"`
	Selftext      string               `json:"selftext"`
	Author        string               `json:"author"`
	CreatedUTC    float64              `json:"created_utc"`
	Score         int                  `json:"score"`
	NumComments   int                  `json:"num_comments"`
	URL           string               `json:"url"`
	Permalink     string               `json:"permalink"`
	Stickied      bool                 `json:"stickied"`
	IsGallery     bool                 `json:"is_gallery"`
	Media         *Media               `json:"media"`
	GalleryData   *GalleryData         `json:"gallery_data"`
	MediaMetadata map[string]MediaItem `json:"media_metadata"`
}

// Created returns the post creation time in UTC
func (p Post) Created() time.Time {
	return unixSeconds(p.CreatedUTC)
}

// Media holds the embedded media of a post
type Media struct {
	RedditVideo *RedditVideo `json:"reddit_video"`
}

// RedditVideo is a video hosted on v.redd.it
type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
}

// GalleryData lists the ordered items of a gallery post
type GalleryData struct {
	Items []GalleryItem `json:"items"`
}

// GalleryItem references an entry of Post.MediaMetadata
type GalleryItem struct {
	MediaID string `json:"media_id"`
}

// MediaItem describes one gallery image; S holds the source rendition
type MediaItem struct {
	Status string `json:"status"`
	S      struct {
		U string `json:"u"`
	} `json:"s"`
}

// Comment is one node of a flattened comment tree
type Comment struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	ParentID   string  `json:"parent_id"`
	LinkID     string  `json:"link_id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
	Depth      int     `json:"depth"`
}

// Created returns the comment creation time in UTC
func (c Comment) Created() time.Time {
	return unixSeconds(c.CreatedUTC)
}

// ParentShortID returns the parent id without its type prefix
func (c Comment) ParentShortID() string {
	if i := strings.LastIndex(c.ParentID, "_"); i >= 0 {
		return c.ParentID[i+1:]
	}
	return c.ParentID
}

// IsTopLevel reports whether the comment replies to the post itself
func (c Comment) IsTopLevel() bool {
	return strings.HasPrefix(c.ParentID, kindPost+"_")
}

// thing is the kind/data envelope wrapping every API object
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		After    string  `json:"after"`
		Before   string  `json:"before"`
		Children []thing `json:"children"`
	} `json:"data"`
}

// replies is either an empty string or a nested listing
type replies struct {
	listing *listing
}

func (r *replies) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var l listing
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	r.listing = &l
	return nil
}

type commentData struct {
	Comment
	Replies replies `json:"replies"`
}

type moreData struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id"`
	Count    int      `json:"count"`
	Children []string `json:"children"`
}

// key identifies a placeholder; "continue this thread" links share the id
// "_" and are told apart by their parent
func (m moreData) key() string {
	if len(m.Children) == 0 {
		return "continue:" + m.ParentID
	}
	return m.Name + ":" + strings.Join(m.Children, ",")
}

// missing is how many comments the placeholder stands for
func (m moreData) missing() int {
	return max(m.Count, len(m.Children), 1)
}

type moreChildrenResponse struct {
	JSON struct {
		Errors []json.RawMessage `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"`
	Scope       string          `json:"scope"`
	Error       json.RawMessage `json:"error"`
	Message     string          `json:"message"`
}

func unixSeconds(v float64) time.Time {
	sec := int64(v)
	nsec := int64((v - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
