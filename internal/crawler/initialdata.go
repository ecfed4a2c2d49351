package crawler

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	ytInitialDataMarker  = "var ytInitialData = "
	ytPlayerRespMarker   = "var ytInitialPlayerResponse = "
	maxRenderersPerWalk  = 200
	shortformMaxDuration = 3 * time.Minute
)

// extractJSON extracts a complete JSON object starting at b[0] == '{' by
// tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// findMarkedJSON locates marker inside an HTML page and extracts the JSON
// object assigned to it.
func findMarkedJSON(html []byte, marker string) []byte {
	idx := strings.Index(string(html), marker)
	if idx < 0 {
		return nil
	}
	return extractJSON(html[idx+len(marker):])
}

type ytRuns struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (r ytRuns) text() string {
	if r.SimpleText != "" {
		return r.SimpleText
	}
	var sb strings.Builder
	for _, run := range r.Runs {
		sb.WriteString(run.Text)
	}
	return sb.String()
}

type ytChannelRenderer struct {
	ChannelID           string `json:"channelId"`
	Title               ytRuns `json:"title"`
	SubscriberCountText ytRuns `json:"subscriberCountText"`
	VideoCountText      ytRuns `json:"videoCountText"`
}

type ytVideoRenderer struct {
	VideoID           string `json:"videoId"`
	Title             ytRuns `json:"title"`
	PublishedTimeText ytRuns `json:"publishedTimeText"`
	LengthText        ytRuns `json:"lengthText"`
}

// collectChannelRenderers recursively walks ytInitialData for channelRenderer
// entries, in document order.
func collectChannelRenderers(data []byte) []ytChannelRenderer {
	var out []ytChannelRenderer
	walkRenderers(data, "channelRenderer", func(raw json.RawMessage) bool {
		var cr ytChannelRenderer
		if err := json.Unmarshal(raw, &cr); err == nil && cr.ChannelID != "" {
			out = append(out, cr)
		}
		return len(out) < maxRenderersPerWalk
	})
	return out
}

// collectVideoRenderers walks ytInitialData (a channel's videos tab) for
// videoRenderer entries, in document order.
func collectVideoRenderers(data []byte, limit int) []ytVideoRenderer {
	if limit <= 0 || limit > maxRenderersPerWalk {
		limit = maxRenderersPerWalk
	}
	var out []ytVideoRenderer
	walkRenderers(data, "videoRenderer", func(raw json.RawMessage) bool {
		var vr ytVideoRenderer
		if err := json.Unmarshal(raw, &vr); err == nil && vr.VideoID != "" {
			out = append(out, vr)
		}
		return len(out) < limit
	})
	return out
}

// findContinuationToken walks ytInitialData for the first
// continuationItemRenderer and returns its continuation command token, or ""
// when the result list has no further pages.
func findContinuationToken(data []byte) string {
	token := ""
	walkRenderers(data, "continuationItemRenderer", func(raw json.RawMessage) bool {
		var cir struct {
			ContinuationEndpoint struct {
				ContinuationCommand struct {
					Token string `json:"token"`
				} `json:"continuationCommand"`
			} `json:"continuationEndpoint"`
		}
		if err := json.Unmarshal(raw, &cir); err == nil {
			token = cir.ContinuationEndpoint.ContinuationCommand.Token
		}
		return token == ""
	})
	return token
}

// walkRenderers does a depth-first walk of arbitrary YouTube JSON, invoking
// visit for every object keyed by key. visit returns false to stop early.
func walkRenderers(data []byte, key string, visit func(json.RawMessage) bool) {
	cont := true
	var walk func(v json.RawMessage)
	walk = func(v json.RawMessage) {
		if !cont {
			return
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(v, &obj); err == nil {
			if raw, ok := obj[key]; ok {
				cont = visit(raw)
				return
			}
			for _, child := range obj {
				if !cont {
					return
				}
				walk(child)
			}
			return
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(v, &arr); err == nil {
			for _, item := range arr {
				if !cont {
					return
				}
				walk(item)
			}
		}
	}
	walk(data)
}

// parseApproxCount parses YouTube's abbreviated counts ("1.2M subscribers",
// "987 subscribers", "3.4K videos") into an absolute number. Returns -1 when
// the text carries no parsable number.
func parseApproxCount(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1
	}
	fields := strings.Fields(s)
	num := strings.ReplaceAll(fields[0], ",", "")

	mult := int64(1)
	switch {
	case strings.HasSuffix(num, "K"), strings.HasSuffix(num, "k"):
		mult, num = 1_000, num[:len(num)-1]
	case strings.HasSuffix(num, "M"), strings.HasSuffix(num, "m"):
		mult, num = 1_000_000, num[:len(num)-1]
	case strings.HasSuffix(num, "B"), strings.HasSuffix(num, "b"):
		mult, num = 1_000_000_000, num[:len(num)-1]
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return -1
	}
	return int64(f * float64(mult))
}

// parseRelativeTime converts YouTube's "3 weeks ago" style published text
// into an absolute timestamp relative to now. Returns the zero time when the
// text is not understood.
func parseRelativeTime(s string, now time.Time) time.Time {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "streamed ")
	fields := strings.Fields(s)
	if len(fields) < 3 || fields[len(fields)-1] != "ago" {
		return time.Time{}
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return time.Time{}
	}
	unit := strings.TrimSuffix(fields[1], "s")
	var d time.Duration
	switch unit {
	case "second":
		d = time.Second
	case "minute":
		d = time.Minute
	case "hour":
		d = time.Hour
	case "day":
		d = 24 * time.Hour
	case "week":
		d = 7 * 24 * time.Hour
	case "month":
		d = 30 * 24 * time.Hour
	case "year":
		d = 365 * 24 * time.Hour
	default:
		return time.Time{}
	}
	return now.Add(-time.Duration(n) * d)
}

// parseClipLength converts a "12:34" or "1:02:34" length label to a duration.
// Returns 0 when the label is not a clock time.
func parseClipLength(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}
