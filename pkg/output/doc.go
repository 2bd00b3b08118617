// Package output writes crawl results as flat datasets.
//
// Each dataset has a fixed header and is written one row at a time, so a
// run interrupted halfway still leaves every row fetched so far on disk.
// Two encodings are available: CSV (the default) and newline-delimited
// JSON with keys kept in header order.
//
// Usage:
//
//	m, err := output.NewManager("data", output.FormatCSV)
//	if err != nil {
//	    return err
//	}
//	w, err := m.Open("tiktok_videos", []string{"video_id", "username"})
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//
//	err = w.Write(output.Row{"video_id": "7301", "username": "someone"})
package output
