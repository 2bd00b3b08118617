package tiktok

import "strings"

// Video is one result of the video query endpoint
type Video struct {
	ID               int64    `json:"id"`
	Username         string   `json:"username"`
	CreateTime       int64    `json:"create_time"`
	RegionCode       string   `json:"region_code"`
	VideoDescription string   `json:"video_description"`
	ViewCount        int64    `json:"view_count"`
	LikeCount        int64    `json:"like_count"`
	CommentCount     int64    `json:"comment_count"`
	ShareCount       int64    `json:"share_count"`
	HashtagNames     []string `json:"hashtag_names"`
	VideoDuration    int64    `json:"video_duration"`
}

// URL returns the public link to the video
func (v Video) URL() string {
	return VideoURL(v.Username, v.ID)
}

// Comment is one result of the comment list endpoint
type Comment struct {
	ID              int64  `json:"id"`
	VideoID         int64  `json:"video_id"`
	Text            string `json:"text"`
	LikeCount       int64  `json:"like_count"`
	ReplyCount      int64  `json:"reply_count"`
	ParentCommentID int64  `json:"parent_comment_id"`
	CreateTime      int64  `json:"create_time"`
}

// Query selects videos by hashtag or keyword
type Query struct {
	Hashtags []string
	Keywords []string
}

// HashtagQuery matches videos carrying any tag either as a hashtag or as a keyword
func HashtagQuery(tags []string) Query {
	return Query{Hashtags: tags, Keywords: tags}
}

type condition struct {
	Operation   string   `json:"operation"`
	FieldName   string   `json:"field_name"`
	FieldValues []string `json:"field_values"`
}

type queryBlock struct {
	Or []condition `json:"or,omitempty"`
}

func (q Query) block() queryBlock {
	var b queryBlock
	if len(q.Hashtags) > 0 {
		b.Or = append(b.Or, condition{Operation: "IN", FieldName: "hashtag_name", FieldValues: q.Hashtags})
	}
	if len(q.Keywords) > 0 {
		b.Or = append(b.Or, condition{Operation: "IN", FieldName: "keyword", FieldValues: q.Keywords})
	}
	return b
}

func (q Query) String() string {
	return strings.Join(q.Hashtags, ",")
}

type videoQueryRequest struct {
	Query     queryBlock `json:"query"`
	StartDate string     `json:"start_date"`
	EndDate   string     `json:"end_date"`
	MaxCount  int        `json:"max_count"`
	Cursor    int64      `json:"cursor"`
	SearchID  string     `json:"search_id,omitempty"`
}

type commentListRequest struct {
	VideoID  string `json:"video_id"`
	MaxCount int    `json:"max_count"`
	Cursor   int64  `json:"cursor"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

type videoQueryResponse struct {
	Data struct {
		Videos   []Video `json:"videos"`
		Cursor   int64   `json:"cursor"`
		HasMore  bool    `json:"has_more"`
		SearchID string  `json:"search_id"`
	} `json:"data"`
	Error apiError `json:"error"`
}

type commentListResponse struct {
	Data struct {
		Comments []Comment `json:"comments"`
		Cursor   int64     `json:"cursor"`
		HasMore  bool      `json:"has_more"`
	} `json:"data"`
	Error apiError `json:"error"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// videoCursor carries the server cursor and the search session id
type videoCursor struct {
	Cursor   int64
	SearchID string
}
