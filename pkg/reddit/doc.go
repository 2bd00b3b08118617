// Package reddit collects comments from subreddit posts through the
// Reddit OAuth API.
//
// Each configured subreddit is read newest first; posts created inside the
// subreddit's date range have their comment tree fetched, flattened and
// written one row per comment with the post fields and its media links
// attached.
package reddit
