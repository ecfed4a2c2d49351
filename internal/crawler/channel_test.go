package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const aboutHTML = `<html><head>
<title>Crypto Daily - YouTube</title>
<meta name="description" content="Daily market recaps. Contact: biz@cryptodaily.example">
</head><body>
<a href="https://t.me/cryptodaily">telegram</a>
<a href="https://example.com/shop">shop</a>
<script>var ytInitialData = {"header":{"c4TabbedHeaderRenderer":{"subscriberCountText":{"simpleText":"1.2M subscribers"}}}};</script>
</body></html>`

const videosHTML = `<html><body><script>
var ytInitialData = {"contents":[
  {"videoRenderer":{"videoId":"vid1","title":{"runs":[{"text":"Market Recap"}]},"publishedTimeText":{"simpleText":"3 days ago"},"lengthText":{"simpleText":"14:02"}}},
  {"videoRenderer":{"videoId":"vid2","title":{"runs":[{"text":"Quick Take"}]},"publishedTimeText":{"simpleText":"1 day ago"},"lengthText":{"simpleText":"0:45"}}},
  {"videoRenderer":{"videoId":"vid3","title":{"runs":[{"text":"Deep Dive"}]},"publishedTimeText":{"simpleText":"2 weeks ago"},"lengthText":{"simpleText":"1:01:09"}}}
]};</script></body></html>`

const watchHTML = `<html><body><script>
var ytInitialPlayerResponse = {"videoDetails":{"videoId":"vid1","shortDescription":"Business inquiries: deals@cryptodaily.example\nFollow on t.me/cryptodaily"}};</script></body></html>`

func channelTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/channel/UC111/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, aboutHTML)
	})
	mux.HandleFunc("/channel/UC111/videos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, videosHTML)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("v") != "vid1" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, watchHTML)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAbout(t *testing.T) {
	srv := channelTestServer(t)
	about, err := testClient(srv.URL).FetchAbout(context.Background(), "UC111")
	if err != nil {
		t.Fatalf("fetch about: %v", err)
	}
	if about.Title != "Crypto Daily" {
		t.Errorf("title = %q", about.Title)
	}
	if about.Description == "" || about.SubscriberCount != 1_200_000 {
		t.Errorf("description = %q, subscribers = %d", about.Description, about.SubscriberCount)
	}
	if len(about.Links) != 2 || about.Links[0] != "https://t.me/cryptodaily" {
		t.Errorf("links = %v", about.Links)
	}
}

func TestFetchRecentVideosFiltersShorts(t *testing.T) {
	srv := channelTestServer(t)
	videos, err := testClient(srv.URL).FetchRecentVideos(context.Background(), "UC111", 3)
	if err != nil {
		t.Fatalf("fetch videos: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("videos = %d, want 2 long-form", len(videos))
	}
	if videos[0].ID != "vid1" || videos[1].ID != "vid3" {
		t.Errorf("ids = %s, %s", videos[0].ID, videos[1].ID)
	}
	if videos[0].Published.IsZero() {
		t.Error("published not parsed")
	}
	if got := time.Until(videos[0].Published); got > -2*24*time.Hour {
		t.Errorf("published %v, want roughly 3 days back", videos[0].Published)
	}
}

func TestFetchVideoDescription(t *testing.T) {
	srv := channelTestServer(t)
	desc, err := testClient(srv.URL).FetchVideoDescription(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("fetch description: %v", err)
	}
	want := "Business inquiries: deals@cryptodaily.example\nFollow on t.me/cryptodaily"
	if desc != want {
		t.Errorf("description = %q", desc)
	}
}
