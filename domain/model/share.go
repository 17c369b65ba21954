package model

import "time"

// Share represents one resolved short link and the upstream response metadata
// that came with it.
type Share struct {
	Surl       string    `json:"surl"`
	ShareID    int64     `json:"share_id"`
	Uk         int64     `json:"uk"`
	Title      string    `json:"title"`
	ServerTime int64     `json:"server_time"`
	Channel    string    `json:"channel"`
	Errno      int       `json:"errno"`
	RequestID  string    `json:"request_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MediaFile is one file inside a share. FsID is globally unique across shares.
type MediaFile struct {
	FsID         int64       `json:"fs_id"`
	Surl         string      `json:"surl"`
	Category     int         `json:"category"`
	IsDir        int         `json:"isdir"`
	LocalCtime   int64       `json:"local_ctime"`
	LocalMtime   int64       `json:"local_mtime"`
	ServerCtime  int64       `json:"server_ctime"`
	ServerMtime  int64       `json:"server_mtime"`
	MD5          string      `json:"md5"`
	ServerMD5    string      `json:"server_md5,omitempty"`
	Path         string      `json:"path"`
	PlayForbid   int         `json:"play_forbid"`
	Size         int64       `json:"size"`
	AdultType    int         `json:"adult_type"`
	DownloadLink string      `json:"dlink,omitempty"`
	Thumbnails   []Thumbnail `json:"thumbs,omitempty"`
}

// Thumbnail is a preview image keyed by a size tag (icon, url1, url2, url3).
type Thumbnail struct {
	FsID int64  `json:"-"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// SharePayload is the full nested projection stored in and read back from the
// durable store: the share row joined with its files and their thumbnails.
type SharePayload struct {
	Share Share       `json:"share"`
	Files []MediaFile `json:"files"`
}

// CanonicalRecord is the minimal per-share projection used by lookup and
// streaming. DownloadLink may legitimately be empty when the upstream dlink
// required session cookies that the server does not hold.
type CanonicalRecord struct {
	FileName     string    `json:"file_name"`
	DownloadLink string    `json:"download_link,omitempty"`
	Size         int64     `json:"size"`
	ServerMtime  int64     `json:"server_mtime"`
	OriginalURL  string    `json:"original_url"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	Uk           int64     `json:"uk"`
	ShareID      int64     `json:"share_id"`
	FsID         int64     `json:"fs_id"`
	CreatedAt    time.Time `json:"created_at"`
	VerifiedAt   time.Time `json:"verified_at"`
}

// ResolveEvent is one entry of the resolution history audit.
type ResolveEvent struct {
	Surl       string    `json:"surl" bson:"surl"`
	Source     string    `json:"source" bson:"source"`
	ErrorKind  string    `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	DurationMs int64     `json:"duration_ms" bson:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
