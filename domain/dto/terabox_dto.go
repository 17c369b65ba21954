package dto

// ShareListResponse mirrors the upstream share/list JSON body. Errno is the
// upstream status code; anything other than 0 is a failed resolution.
type ShareListResponse struct {
	Errno      int        `json:"errno"`
	RequestID  int64      `json:"request_id"`
	ServerTime int64      `json:"server_time"`
	ShareID    int64      `json:"share_id"`
	Uk         int64      `json:"uk"`
	Title      string     `json:"title"`
	Channel    string     `json:"channel,omitempty"`
	List       []FileItem `json:"list"`
}

// FileItem is one entry of the upstream file list.
type FileItem struct {
	FsID           int64  `json:"fs_id"`
	Category       int    `json:"category"`
	IsDir          int    `json:"isdir"`
	LocalCtime     int64  `json:"local_ctime"`
	LocalMtime     int64  `json:"local_mtime"`
	ServerCtime    int64  `json:"server_ctime"`
	ServerMtime    int64  `json:"server_mtime"`
	MD5            string `json:"md5"`
	ServerMD5      string `json:"server_md5"`
	Path           string `json:"path"`
	ServerFilename string `json:"server_filename"`
	PlayForbid     int    `json:"play_forbid"`
	Size           int64  `json:"size"`
	AdultType      int    `json:"adult_type"`
	Dlink          string `json:"dlink"`
	Thumbs         Thumbs `json:"thumbs"`
}

// Thumbs carries the upstream thumbnail URLs from smallest to largest.
type Thumbs struct {
	Icon string `json:"icon,omitempty"`
	URL1 string `json:"url1,omitempty"`
	URL2 string `json:"url2,omitempty"`
	URL3 string `json:"url3,omitempty"`
}
