package reddit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const galleryJSON = `{"url":"https://www.reddit.com/gallery/g1","is_gallery":true,
	"gallery_data":{"items":[{"media_id":"m2"},{"media_id":"m1"},{"media_id":"gone"}]},
	"media_metadata":{"m1":{"status":"valid","s":{"u":"https://preview.redd.it/m1.jpg"}},"m2":{"status":"valid","s":{"u":"https://preview.redd.it/m2.jpg"}}}}`

func TestExtractMedia(t *testing.T) {
	tests := []struct {
		name      string
		post      string
		wantURLs  []string
		wantTypes []string
	}{
		{
			name:      "direct image",
			post:      `{"url":"https://i.redd.it/abc.png"}`,
			wantURLs:  []string{"https://i.redd.it/abc.png"},
			wantTypes: []string{"image"},
		},
		{
			name:      "hosted video",
			post:      `{"url":"https://v.redd.it/xyz","media":{"reddit_video":{"fallback_url":"https://v.redd.it/xyz/DASH_720.mp4"}}}`,
			wantURLs:  []string{"https://v.redd.it/xyz/DASH_720.mp4"},
			wantTypes: []string{"video"},
		},
		{
			name:      "gallery keeps item order and skips missing metadata",
			post:      galleryJSON,
			wantURLs:  []string{"https://preview.redd.it/m2.jpg", "https://preview.redd.it/m1.jpg"},
			wantTypes: []string{"image", "image"},
		},
		{
			name: "text post",
			post: `{"url":"https://www.reddit.com/r/Aphantasia/comments/p1/x/","media":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Post
			require.NoError(t, json.Unmarshal([]byte(tt.post), &p))
			urls, types := ExtractMedia(p)
			assert.Equal(t, tt.wantURLs, urls)
			assert.Equal(t, tt.wantTypes, types)
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\u00a0b&nbsp;c \n"))
	assert.Equal(t, "", CleanText("&nbsp;"))
}

func TestAuthorName(t *testing.T) {
	assert.Equal(t, "deleted", AuthorName(""))
	assert.Equal(t, "deleted", AuthorName("[deleted]"))
	assert.Equal(t, "ann", AuthorName("ann"))
}
