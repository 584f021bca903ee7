package models

import (
	"time"
)

// 本文件中的类型均为 YouTube API 的瞬态数据，只在一次请求/监控周期内存活，不入库

// ChannelInfo 频道基本信息
type ChannelInfo struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Thumbnail         string `json:"thumbnail"`
	SubscriberCount   int64  `json:"subscriberCount"`
	VideoCount        int64  `json:"videoCount"`
	ViewCount         int64  `json:"viewCount"`
	UploadsPlaylistID string `json:"uploadsPlaylistId"`
}

// Video 视频及其当前统计数据，用于决定哪些视频值得拉取评论
type Video struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Thumbnail     string    `json:"thumbnail"`
	PublishedAt   time.Time `json:"publishedAt"`
	ViewCount     int64     `json:"viewCount"`
	LikeCount     int64     `json:"likeCount"`
	CommentCount  int64     `json:"commentCount"`
	CommentStatus string    `json:"commentStatus"` // enabled / disabled
}

// Comment 单条评论（顶级评论带嵌套回复）
type Comment struct {
	ID                    string    `json:"id"`
	Text                  string    `json:"text"`
	Author                string    `json:"author"`
	AuthorProfileImageURL string    `json:"authorProfileImageUrl"`
	PublishedAt           time.Time `json:"publishedAt"`
	LikeCount             int64     `json:"likeCount"`
	ReplyCount            int64     `json:"replyCount"`
	Replies               []Comment `json:"replies,omitempty"`
	VideoID               string    `json:"videoId,omitempty"`
	VideoTitle            string    `json:"videoTitle,omitempty"`
}

// CommentPage 一页评论串及翻页令牌
type CommentPage struct {
	Comments      []Comment `json:"comments"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
}

// Reply 发布回复后平台返回的结果
type Reply struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"publishedAt"`
}
