package persistence

import (
	"database/sql"
	"fmt"

	"terastream/infrastructure/logger"
)

// EnsureShareSchema creates the share storage tables on PostgreSQL if they do
// not exist. Safe to call at every startup.
func EnsureShareSchema(db *sql.DB) error {
	ddls := []string{
		`CREATE TABLE IF NOT EXISTS shares (
            surl TEXT PRIMARY KEY,
            share_id BIGINT NOT NULL,
            uk BIGINT NOT NULL,
            title TEXT,
            server_time BIGINT,
            channel TEXT,
            errno INT NOT NULL DEFAULT 0,
            request_id TEXT,
            updated_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS media_files (
            fs_id BIGINT PRIMARY KEY,
            surl TEXT NOT NULL REFERENCES shares(surl),
            category INT,
            isdir INT,
            local_ctime BIGINT,
            local_mtime BIGINT,
            server_ctime BIGINT,
            server_mtime BIGINT,
            md5 TEXT,
            server_md5 TEXT,
            path TEXT,
            play_forbid INT,
            size BIGINT,
            adult_type INT,
            dlink TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS thumbnails (
            id BIGSERIAL PRIMARY KEY,
            fs_id BIGINT NOT NULL REFERENCES media_files(fs_id) ON DELETE CASCADE,
            thumb_type TEXT NOT NULL,
            url TEXT NOT NULL
        )`,
	}
	for _, ddl := range ddls {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("ensure share schema: %w", err)
		}
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_media_files_surl ON media_files(surl)`); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed creating idx_media_files_surl")
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_thumbnails_fs_id ON thumbnails(fs_id)`); err != nil {
		logger.GetLogger().WithField("error", err).Warn("failed creating idx_thumbnails_fs_id")
	}
	return nil
}
