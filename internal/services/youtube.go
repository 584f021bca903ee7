package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"tubepulse/internal/models"
	"tubepulse/internal/utils"

	"github.com/mmcdole/gofeed"
	"golang.org/x/oauth2"
)

const (
	defaultYouTubeAPIBase = "https://www.googleapis.com/youtube/v3"
	youtubeFeedURL        = "https://www.youtube.com/feeds/videos.xml?channel_id="

	// 频道/视频元数据缓存时长，降低配额消耗
	youtubeCacheTTL = 2 * time.Minute
)

// YouTubeService YouTube Data API v3 客户端
// 凭证通过构造时注入的 TokenSource 提供，不持有进程级全局 token
type YouTubeService struct {
	client  *http.Client
	baseURL string
}

// NewYouTubeService 基于当前持久化凭证创建客户端
// 没有可用凭证时返回 ErrNotAuthenticated
func NewYouTubeService(ctx context.Context) (*YouTubeService, error) {
	ts, err := youtubeTokenSource(ctx)
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, ts)
	client.Timeout = 15 * time.Second

	baseURL := os.Getenv("YOUTUBE_API_BASE_URL")
	if baseURL == "" {
		baseURL = defaultYouTubeAPIBase
	}

	return &YouTubeService{
		client:  client,
		baseURL: baseURL,
	}, nil
}

// YouTube API 在 statistics 里用字符串表示数字
type ytStatistics struct {
	ViewCount       string `json:"viewCount"`
	LikeCount       string `json:"likeCount"`
	CommentCount    string `json:"commentCount"`
	SubscriberCount string `json:"subscriberCount"`
	VideoCount      string `json:"videoCount"`
}

type ytThumbnails struct {
	Default struct {
		URL string `json:"url"`
	} `json:"default"`
	Medium struct {
		URL string `json:"url"`
	} `json:"medium"`
}

type ytChannelList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string       `json:"title"`
			Description string       `json:"description"`
			Thumbnails  ytThumbnails `json:"thumbnails"`
		} `json:"snippet"`
		Statistics     ytStatistics `json:"statistics"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytPlaylistItemList struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytVideoList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string       `json:"title"`
			Description string       `json:"description"`
			Thumbnails  ytThumbnails `json:"thumbnails"`
			PublishedAt time.Time    `json:"publishedAt"`
		} `json:"snippet"`
		Statistics ytStatistics `json:"statistics"`
		Status     struct {
			CommentStatus string `json:"commentStatus"`
		} `json:"status"`
	} `json:"items"`
}

type ytCommentSnippet struct {
	TextDisplay           string    `json:"textDisplay"`
	AuthorDisplayName     string    `json:"authorDisplayName"`
	AuthorProfileImageURL string    `json:"authorProfileImageUrl"`
	PublishedAt           time.Time `json:"publishedAt"`
	LikeCount             int64     `json:"likeCount"`
}

type ytCommentThreadList struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			TopLevelComment struct {
				Snippet ytCommentSnippet `json:"snippet"`
			} `json:"topLevelComment"`
			TotalReplyCount int64 `json:"totalReplyCount"`
		} `json:"snippet"`
		Replies struct {
			Comments []struct {
				ID      string           `json:"id"`
				Snippet ytCommentSnippet `json:"snippet"`
			} `json:"comments"`
		} `json:"replies"`
	} `json:"items"`
	NextPageToken string `json:"nextPageToken"`
}

type ytCommentInsertResponse struct {
	ID      string `json:"id"`
	Snippet struct {
		TextOriginal string    `json:"textOriginal"`
		PublishedAt  time.Time `json:"publishedAt"`
	} `json:"snippet"`
}

// get 调用 API 并解析 JSON 响应
func (s *YouTubeService) get(path string, params url.Values, out interface{}) error {
	resp, err := s.client.Get(s.baseURL + path + "?" + params.Encode())
	if err != nil {
		return fmt.Errorf("请求 YouTube API 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("YouTube API 返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// GetChannelInfo 获取当前授权用户的频道信息
func (s *YouTubeService) GetChannelInfo() (*models.ChannelInfo, error) {
	cached, err := utils.GetCache().GetOrLoad("youtube:channel", youtubeCacheTTL, func() (interface{}, error) {
		params := url.Values{}
		params.Set("part", "snippet,statistics,contentDetails")
		params.Set("mine", "true")

		var list ytChannelList
		if err := s.get("/channels", params, &list); err != nil {
			return nil, err
		}
		if len(list.Items) == 0 {
			return nil, fmt.Errorf("授权账号下没有找到频道: %w", ErrNotAuthenticated)
		}

		ch := list.Items[0]
		return &models.ChannelInfo{
			ID:                ch.ID,
			Title:             ch.Snippet.Title,
			Description:       ch.Snippet.Description,
			Thumbnail:         ch.Snippet.Thumbnails.Default.URL,
			SubscriberCount:   atoi64(ch.Statistics.SubscriberCount),
			VideoCount:        atoi64(ch.Statistics.VideoCount),
			ViewCount:         atoi64(ch.Statistics.ViewCount),
			UploadsPlaylistID: ch.ContentDetails.RelatedPlaylists.Uploads,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return cached.(*models.ChannelInfo), nil
}

// GetVideos 获取最近上传的视频及其统计数据
func (s *YouTubeService) GetVideos(maxResults int) ([]models.Video, error) {
	if maxResults <= 0 {
		maxResults = 50
	}

	cacheKey := fmt.Sprintf("youtube:videos:%d", maxResults)
	cached, err := utils.GetCache().GetOrLoad(cacheKey, youtubeCacheTTL, func() (interface{}, error) {
		channel, err := s.GetChannelInfo()
		if err != nil {
			return nil, err
		}

		videos, err := s.listUploads(channel.UploadsPlaylistID, maxResults)
		if err != nil {
			// 配额或接口故障时退回频道 RSS（只有基础元数据，没有评论开关和计数）
			log.Printf("视频列表接口失败，尝试 RSS 回退: %v", err)
			return s.videosFromFeed(channel.ID)
		}
		return videos, nil
	})
	if err != nil {
		return nil, err
	}
	return cached.([]models.Video), nil
}

func (s *YouTubeService) listUploads(playlistID string, maxResults int) ([]models.Video, error) {
	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", strconv.Itoa(maxResults))

	var playlist ytPlaylistItemList
	if err := s.get("/playlistItems", params, &playlist); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(playlist.Items))
	for _, item := range playlist.Items {
		ids = append(ids, item.ContentDetails.VideoID)
	}
	if len(ids) == 0 {
		return []models.Video{}, nil
	}

	params = url.Values{}
	params.Set("part", "snippet,statistics,status")
	params.Set("id", strings.Join(ids, ","))

	var list ytVideoList
	if err := s.get("/videos", params, &list); err != nil {
		return nil, err
	}

	videos := make([]models.Video, 0, len(list.Items))
	for _, v := range list.Items {
		videos = append(videos, models.Video{
			ID:            v.ID,
			Title:         v.Snippet.Title,
			Description:   v.Snippet.Description,
			Thumbnail:     v.Snippet.Thumbnails.Medium.URL,
			PublishedAt:   v.Snippet.PublishedAt,
			ViewCount:     atoi64(v.Statistics.ViewCount),
			LikeCount:     atoi64(v.Statistics.LikeCount),
			CommentCount:  atoi64(v.Statistics.CommentCount),
			CommentStatus: v.Status.CommentStatus,
		})
	}
	return videos, nil
}

// videosFromFeed 通过频道上传 RSS 发现视频，作为配额耗尽时的降级路径
// RSS 不含评论状态，CommentCount 置为 -1 表示未知，后续流程只跳过明确为 0 的视频
func (s *YouTubeService) videosFromFeed(channelID string) ([]models.Video, error) {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 15 * time.Second}

	feed, err := parser.ParseURL(youtubeFeedURL + channelID)
	if err != nil {
		return nil, fmt.Errorf("解析频道 RSS 失败: %w", err)
	}

	videos := make([]models.Video, 0, len(feed.Items))
	for _, item := range feed.Items {
		videoID := ""
		if ext, ok := item.Extensions["yt"]; ok {
			if ids, ok := ext["videoId"]; ok && len(ids) > 0 {
				videoID = ids[0].Value
			}
		}
		if videoID == "" {
			continue
		}

		publishedAt := time.Now()
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		}

		videos = append(videos, models.Video{
			ID:            videoID,
			Title:         item.Title,
			PublishedAt:   publishedAt,
			CommentCount:  -1,
			CommentStatus: "enabled",
		})
	}
	return videos, nil
}

// GetVideoComments 获取单个视频的顶级评论串（含嵌套回复），按时间倒序
func (s *YouTubeService) GetVideoComments(videoID string, maxResults int) (*models.CommentPage, error) {
	if maxResults <= 0 {
		maxResults = 100
	}

	params := url.Values{}
	params.Set("part", "snippet,replies")
	params.Set("videoId", videoID)
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("order", "time")

	var list ytCommentThreadList
	if err := s.get("/commentThreads", params, &list); err != nil {
		return nil, err
	}

	comments := make([]models.Comment, 0, len(list.Items))
	for _, item := range list.Items {
		top := item.Snippet.TopLevelComment.Snippet

		replies := make([]models.Comment, 0, len(item.Replies.Comments))
		for _, r := range item.Replies.Comments {
			replies = append(replies, models.Comment{
				ID:                    r.ID,
				Text:                  r.Snippet.TextDisplay,
				Author:                r.Snippet.AuthorDisplayName,
				AuthorProfileImageURL: r.Snippet.AuthorProfileImageURL,
				PublishedAt:           r.Snippet.PublishedAt,
				LikeCount:             r.Snippet.LikeCount,
			})
		}

		comments = append(comments, models.Comment{
			ID:                    item.ID,
			Text:                  top.TextDisplay,
			Author:                top.AuthorDisplayName,
			AuthorProfileImageURL: top.AuthorProfileImageURL,
			PublishedAt:           top.PublishedAt,
			LikeCount:             top.LikeCount,
			ReplyCount:            item.Snippet.TotalReplyCount,
			Replies:               replies,
		})
	}

	return &models.CommentPage{
		Comments:      comments,
		NextPageToken: list.NextPageToken,
	}, nil
}

// GetRecentComments 汇总所有视频在回看窗口内的新评论，按发布时间倒序
// 单个视频的评论拉取失败只跳过该视频，不影响其他视频
func (s *YouTubeService) GetRecentComments(hours int) ([]models.Comment, error) {
	videos, err := s.GetVideos(10)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	recent := make([]models.Comment, 0)

	for _, video := range videos {
		if video.CommentStatus == "disabled" || video.CommentCount == 0 {
			log.Printf("跳过视频 %s: 评论已关闭或没有评论", video.ID)
			continue
		}

		page, err := s.GetVideoComments(video.ID, 50)
		if err != nil {
			log.Printf("拉取视频 %s 评论失败: %v", video.ID, err)
			continue
		}

		for _, comment := range page.Comments {
			if !comment.PublishedAt.After(cutoff) {
				continue
			}
			comment.VideoID = video.ID
			comment.VideoTitle = video.Title
			recent = append(recent, comment)
		}
	}

	sort.Slice(recent, func(i, j int) bool {
		return recent[i].PublishedAt.After(recent[j].PublishedAt)
	})
	return recent, nil
}

// ReplyToComment 以子评论形式回复指定评论
// 平台层面不是幂等操作，失败重试可能产生重复回复，错误原样上抛由调用方记录
func (s *YouTubeService) ReplyToComment(commentID, text string) (*models.Reply, error) {
	payload := map[string]interface{}{
		"snippet": map[string]interface{}{
			"parentId":     commentID,
			"textOriginal": text,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Post(s.baseURL+"/comments?part=snippet", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("发布回复失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("发布回复失败 %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var inserted ytCommentInsertResponse
	if err := json.NewDecoder(resp.Body).Decode(&inserted); err != nil {
		return nil, err
	}

	return &models.Reply{
		ID:          inserted.ID,
		Text:        inserted.Snippet.TextOriginal,
		PublishedAt: inserted.Snippet.PublishedAt,
	}, nil
}

func atoi64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
