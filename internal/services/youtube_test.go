package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"tubepulse/internal/utils"
)

func clearYouTubeCache() {
	utils.GetCache().Delete("youtube:channel")
	utils.GetCache().Delete("youtube:videos:10")
	utils.GetCache().Delete("youtube:videos:50")
}

// fakeYouTubeServer 模拟 YouTube Data API
// 三个视频: v1 正常、v2 关闭评论、v3 没有评论，v1 下有新旧两段评论
func fakeYouTubeServer(t *testing.T) *httptest.Server {
	t.Helper()

	recentA := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339)
	recentB := time.Now().Add(-3 * time.Hour).UTC().Format(time.RFC3339)
	stale := time.Now().Add(-30 * time.Hour).UTC().Format(time.RFC3339)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/channels":
			fmt.Fprint(w, `{"items":[{"id":"ch1","snippet":{"title":"Test Channel"},"statistics":{"subscriberCount":"100","videoCount":"3","viewCount":"5000"},"contentDetails":{"relatedPlaylists":{"uploads":"up1"}}}]}`)

		case "/playlistItems":
			if r.URL.Query().Get("playlistId") != "up1" {
				t.Errorf("Unexpected playlistId: %s", r.URL.Query().Get("playlistId"))
			}
			fmt.Fprint(w, `{"items":[{"contentDetails":{"videoId":"v1"}},{"contentDetails":{"videoId":"v2"}},{"contentDetails":{"videoId":"v3"}}]}`)

		case "/videos":
			fmt.Fprint(w, `{"items":[
				{"id":"v1","snippet":{"title":"Video One"},"statistics":{"viewCount":"10","commentCount":"3"},"status":{"commentStatus":"enabled"}},
				{"id":"v2","snippet":{"title":"Video Two"},"statistics":{"viewCount":"20","commentCount":"9"},"status":{"commentStatus":"disabled"}},
				{"id":"v3","snippet":{"title":"Video Three"},"statistics":{"viewCount":"30","commentCount":"0"},"status":{"commentStatus":"enabled"}}]}`)

		case "/commentThreads":
			videoID := r.URL.Query().Get("videoId")
			if videoID != "v1" {
				t.Errorf("Comments must not be fetched for video %s", videoID)
				fmt.Fprint(w, `{"items":[]}`)
				return
			}
			fmt.Fprintf(w, `{"items":[
				{"id":"cOld","snippet":{"topLevelComment":{"snippet":{"textDisplay":"old comment","authorDisplayName":"alice","publishedAt":"%s"}},"totalReplyCount":0}},
				{"id":"cNewA","snippet":{"topLevelComment":{"snippet":{"textDisplay":"newest comment","authorDisplayName":"bob","publishedAt":"%s","likeCount":3}},"totalReplyCount":1},"replies":{"comments":[{"id":"cNewA.r1","snippet":{"textDisplay":"a reply","authorDisplayName":"carol","publishedAt":"%s"}}]}},
				{"id":"cNewB","snippet":{"topLevelComment":{"snippet":{"textDisplay":"second newest","authorDisplayName":"dave","publishedAt":"%s"}},"totalReplyCount":0}}]}`,
				stale, recentA, recentA, recentB)

		default:
			t.Errorf("Unexpected API path: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
}

func newTestYouTubeService(server *httptest.Server) *YouTubeService {
	return &YouTubeService{
		client:  server.Client(),
		baseURL: server.URL,
	}
}

func TestGetChannelInfo(t *testing.T) {
	clearYouTubeCache()
	server := fakeYouTubeServer(t)
	defer server.Close()

	s := newTestYouTubeService(server)
	channel, err := s.GetChannelInfo()
	if err != nil {
		t.Fatalf("GetChannelInfo failed: %v", err)
	}
	if channel.Title != "Test Channel" {
		t.Errorf("Unexpected title: %s", channel.Title)
	}
	// statistics 的字符串数字要转成整型
	if channel.SubscriberCount != 100 {
		t.Errorf("Expected 100 subscribers, got %d", channel.SubscriberCount)
	}
	if channel.UploadsPlaylistID != "up1" {
		t.Errorf("Unexpected uploads playlist: %s", channel.UploadsPlaylistID)
	}
}

func TestGetVideoComments(t *testing.T) {
	clearYouTubeCache()
	server := fakeYouTubeServer(t)
	defer server.Close()

	s := newTestYouTubeService(server)
	page, err := s.GetVideoComments("v1", 50)
	if err != nil {
		t.Fatalf("GetVideoComments failed: %v", err)
	}
	if len(page.Comments) != 3 {
		t.Fatalf("Expected 3 comments, got %d", len(page.Comments))
	}

	var withReplies int
	for _, c := range page.Comments {
		if c.ID == "cNewA" {
			withReplies = len(c.Replies)
			if c.ReplyCount != 1 {
				t.Errorf("Expected reply count 1, got %d", c.ReplyCount)
			}
		}
	}
	if withReplies != 1 {
		t.Errorf("Expected 1 nested reply on cNewA, got %d", withReplies)
	}
}

func TestGetRecentComments(t *testing.T) {
	clearYouTubeCache()
	server := fakeYouTubeServer(t)
	defer server.Close()

	s := newTestYouTubeService(server)
	comments, err := s.GetRecentComments(24)
	if err != nil {
		t.Fatalf("GetRecentComments failed: %v", err)
	}

	// 回看窗口过滤掉 30 小时前的评论；关闭评论和零评论的视频被跳过
	if len(comments) != 2 {
		t.Fatalf("Expected 2 recent comments, got %d", len(comments))
	}

	// 按发布时间倒序
	if comments[0].ID != "cNewA" || comments[1].ID != "cNewB" {
		t.Errorf("Unexpected order: %s, %s", comments[0].ID, comments[1].ID)
	}

	for _, c := range comments {
		if c.VideoID != "v1" {
			t.Errorf("Expected videoId v1, got %s", c.VideoID)
		}
		if c.VideoTitle != "Video One" {
			t.Errorf("Expected video title attached, got %q", c.VideoTitle)
		}
	}
}

func TestGetRecentCommentsLookbackWindow(t *testing.T) {
	clearYouTubeCache()
	server := fakeYouTubeServer(t)
	defer server.Close()

	s := newTestYouTubeService(server)

	// 收窄回看窗口，只剩 2 小时内没有任何评论落入
	comments, err := s.GetRecentComments(1)
	if err != nil {
		t.Fatalf("GetRecentComments failed: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("Expected 0 comments within 1 hour, got %d", len(comments))
	}
}

func TestReplyToComment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/comments" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var payload struct {
			Snippet struct {
				ParentID     string `json:"parentId"`
				TextOriginal string `json:"textOriginal"`
			} `json:"snippet"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("Failed to decode reply payload: %v", err)
		}
		if payload.Snippet.ParentID != "c1" {
			t.Errorf("Expected parentId c1, got %s", payload.Snippet.ParentID)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1.reply","snippet":{"textOriginal":"%s","publishedAt":"%s"}}`,
			payload.Snippet.TextOriginal, time.Now().UTC().Format(time.RFC3339))
	}))
	defer server.Close()

	s := newTestYouTubeService(server)
	reply, err := s.ReplyToComment("c1", "Thanks!")
	if err != nil {
		t.Fatalf("ReplyToComment failed: %v", err)
	}
	if reply.ID != "c1.reply" {
		t.Errorf("Unexpected reply id: %s", reply.ID)
	}
	if reply.Text != "Thanks!" {
		t.Errorf("Unexpected reply text: %q", reply.Text)
	}
}

func TestAtoi64(t *testing.T) {
	if atoi64("1234") != 1234 {
		t.Error("Expected 1234")
	}
	if atoi64("") != 0 {
		t.Error("Expected 0 for empty string")
	}
	if atoi64("not-a-number") != 0 {
		t.Error("Expected 0 for garbage input")
	}
}
