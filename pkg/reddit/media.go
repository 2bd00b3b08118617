package reddit

import "strings"

const (
	MediaImage = "image"
	MediaVideo = "video"
)

var imageSuffixes = []string{".jpg", ".png", ".gif"}

// ExtractMedia collects the media attached to a post: a direct image
// link, a hosted video and the items of a gallery, in that order. The
// returned slices are parallel.
func ExtractMedia(p Post) (urls []string, types []string) {
	for _, suffix := range imageSuffixes {
		if strings.HasSuffix(p.URL, suffix) {
			urls = append(urls, p.URL)
			types = append(types, MediaImage)
			break
		}
	}

	if p.Media != nil && p.Media.RedditVideo != nil && p.Media.RedditVideo.FallbackURL != "" {
		urls = append(urls, p.Media.RedditVideo.FallbackURL)
		types = append(types, MediaVideo)
	}

	if p.IsGallery && p.GalleryData != nil && p.MediaMetadata != nil {
		for _, item := range p.GalleryData.Items {
			meta, ok := p.MediaMetadata[item.MediaID]
			if !ok || meta.S.U == "" {
				continue
			}
			urls = append(urls, meta.S.U)
			types = append(types, MediaImage)
		}
	}

	return urls, types
}

var textReplacer = strings.NewReplacer("\u00a0", " ", "&nbsp;", " ")

// CleanText replaces non-breaking spaces and trims the result
func CleanText(s string) string {
	return strings.TrimSpace(textReplacer.Replace(s))
}

// AuthorName maps removed accounts to "deleted"
func AuthorName(author string) string {
	if author == "" || author == "[deleted]" {
		return "deleted"
	}
	return author
}
