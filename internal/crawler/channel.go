package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// subscriberLabelRE matches the subscriber label embedded in a channel
// page's initial data blob, e.g. `"1.21M subscribers"`.
var subscriberLabelRE = regexp.MustCompile(`"([\d.,]+[KMBkmb]?) subscribers"`)

// AboutPage is the parsed channel about tab.
type AboutPage struct {
	Title       string
	Description string
	Links       []string
	// RawText is the page body text, kept for contact extraction sweeps.
	RawText string
	// SubscriberCount is -1 when the page shows no count.
	SubscriberCount int64
}

// Video is one entry from a channel's videos tab.
type Video struct {
	ID        string
	Title     string
	Published time.Time // zero when the published label was not parsable
	Length    time.Duration
}

// Longform reports whether the clip is long enough to count as a regular
// upload rather than a short.
func (v Video) Longform() bool {
	return v.Length >= shortformMaxDuration
}

// FetchAbout fetches and parses a channel's about tab.
func (c *Client) FetchAbout(ctx context.Context, channelID string) (*AboutPage, error) {
	body, err := c.fetchHTML(ctx, c.baseURL+"/channel/"+channelID+"/about")
	if err != nil {
		return nil, fmt.Errorf("about page %s: %w", channelID, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	about := &AboutPage{
		Title:           strings.TrimSpace(doc.Find("title").First().Text()),
		SubscriberCount: -1,
	}

	var descParts []string
	doc.Find(`meta[name="description"], meta[property="og:description"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok && content != "" {
			descParts = append(descParts, content)
		}
	})
	about.Description = strings.Join(descParts, " ")

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			about.Links = append(about.Links, href)
		}
	})

	// Channel pages embed the subscriber label in the initial data blob
	// rather than rendered HTML, so scan the raw body for it.
	about.RawText = string(body)
	if m := subscriberLabelRE.FindStringSubmatch(about.RawText); len(m) >= 2 {
		about.SubscriberCount = parseApproxCount(m[1] + " subscribers")
	}
	about.Title = strings.TrimSuffix(about.Title, " - YouTube")
	return about, nil
}

// FetchRecentVideos fetches a channel's videos tab and returns up to limit
// entries in page order, newest first. Shorts are filtered out by clip
// length; callers needing them can inspect the full page themselves.
func (c *Client) FetchRecentVideos(ctx context.Context, channelID string, limit int) ([]Video, error) {
	body, err := c.fetchHTML(ctx, c.baseURL+"/channel/"+channelID+"/videos")
	if err != nil {
		return nil, fmt.Errorf("videos tab %s: %w", channelID, err)
	}
	data := findMarkedJSON(body, ytInitialDataMarker)
	if data == nil {
		return nil, fmt.Errorf("videos tab %s: ytInitialData not found", channelID)
	}

	now := time.Now().UTC()
	var out []Video
	for _, vr := range collectVideoRenderers(data, maxRenderersPerWalk) {
		v := Video{
			ID:        vr.VideoID,
			Title:     vr.Title.text(),
			Published: parseRelativeTime(vr.PublishedTimeText.text(), now),
			Length:    parseClipLength(vr.LengthText.text()),
		}
		if !v.Longform() {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// CountLongformVideos reports how many long-form uploads the first videos
// tab page shows. This is a lower bound, good enough for threshold filters.
func (c *Client) CountLongformVideos(ctx context.Context, channelID string) (int64, error) {
	videos, err := c.FetchRecentVideos(ctx, channelID, 0)
	if err != nil {
		return -1, err
	}
	return int64(len(videos)), nil
}

// FetchVideoDescription fetches a watch page and extracts the full video
// description from the embedded player response.
func (c *Client) FetchVideoDescription(ctx context.Context, videoID string) (string, error) {
	body, err := c.fetchHTML(ctx, c.baseURL+"/watch?v="+videoID)
	if err != nil {
		return "", fmt.Errorf("watch page %s: %w", videoID, err)
	}
	data := findMarkedJSON(body, ytPlayerRespMarker)
	if data == nil {
		return "", fmt.Errorf("watch page %s: player response not found", videoID)
	}

	var resp struct {
		VideoDetails struct {
			ShortDescription string `json:"shortDescription"`
		} `json:"videoDetails"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("watch page %s: %w", videoID, err)
	}
	return resp.VideoDetails.ShortDescription, nil
}
