package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"terastream/domain/model"
	"terastream/infrastructure/logger"
)

// EnsureShareSchemaMSSQL creates the share storage tables on SQL Server /
// Azure SQL if they do not exist.
func EnsureShareSchemaMSSQL(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db is nil")
	}
	ddls := []string{
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.shares') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.shares (
        surl NVARCHAR(128) NOT NULL PRIMARY KEY,
        share_id BIGINT NOT NULL,
        uk BIGINT NOT NULL,
        title NVARCHAR(1024) NULL,
        server_time BIGINT NULL,
        channel NVARCHAR(64) NULL,
        errno INT NOT NULL DEFAULT 0,
        request_id NVARCHAR(64) NULL,
        updated_at DATETIMEOFFSET NOT NULL
    );
END`,
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.media_files') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.media_files (
        fs_id BIGINT NOT NULL PRIMARY KEY,
        surl NVARCHAR(128) NOT NULL,
        category INT NULL,
        isdir INT NULL,
        local_ctime BIGINT NULL,
        local_mtime BIGINT NULL,
        server_ctime BIGINT NULL,
        server_mtime BIGINT NULL,
        md5 NVARCHAR(64) NULL,
        server_md5 NVARCHAR(64) NULL,
        path NVARCHAR(2048) NULL,
        play_forbid INT NULL,
        size BIGINT NULL,
        adult_type INT NULL,
        dlink NVARCHAR(MAX) NULL
    );
END`,
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.thumbnails') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.thumbnails (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        fs_id BIGINT NOT NULL,
        thumb_type NVARCHAR(16) NOT NULL,
        url NVARCHAR(MAX) NOT NULL
    );
END`,
	}
	for _, ddl := range ddls {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("ensure share schema (mssql): %w", err)
		}
	}
	return nil
}

// ShareStoreRepositoryMSSQL implements the durable share store for SQL
// Server / Azure SQL using database/sql.
type ShareStoreRepositoryMSSQL struct{ db *sql.DB }

func NewShareStoreRepositoryMSSQL(db *sql.DB) *ShareStoreRepositoryMSSQL {
	return &ShareStoreRepositoryMSSQL{db: db}
}

func (r *ShareStoreRepositoryMSSQL) Store(ctx context.Context, payload *model.SharePayload) error {
	s := payload.Share
	now := time.Now().UTC()
	q := `MERGE dbo.shares AS target
USING (VALUES (@p1)) AS src(surl)
ON target.surl = src.surl
WHEN MATCHED THEN UPDATE SET
  share_id=@p2, uk=@p3, title=@p4, server_time=@p5, channel=@p6, errno=@p7, request_id=@p8, updated_at=@p9
WHEN NOT MATCHED THEN
  INSERT (surl, share_id, uk, title, server_time, channel, errno, request_id, updated_at)
  VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9);`
	if _, err := r.db.ExecContext(ctx, q, s.Surl, s.ShareID, s.Uk, s.Title, s.ServerTime, s.Channel, s.Errno, s.RequestID, now); err != nil {
		return err
	}

	var lastErr error
	for i := range payload.Files {
		if err := r.storeFile(ctx, s.Surl, &payload.Files[i]); err != nil {
			logger.GetLogger().
				WithField("surl", s.Surl).
				WithField("fs_id", payload.Files[i].FsID).
				WithField("error", err).
				Error("failed storing media file, continuing with remaining files")
			lastErr = err
		}
	}
	return lastErr
}

func (r *ShareStoreRepositoryMSSQL) storeFile(ctx context.Context, surl string, f *model.MediaFile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := `MERGE dbo.media_files AS target
USING (VALUES (@p1)) AS src(fs_id)
ON target.fs_id = src.fs_id
WHEN MATCHED THEN UPDATE SET
  surl=@p2, category=@p3, isdir=@p4, local_ctime=@p5, local_mtime=@p6,
  server_ctime=@p7, server_mtime=@p8, md5=@p9, server_md5=@p10, path=@p11,
  play_forbid=@p12, size=@p13, adult_type=@p14, dlink=@p15
WHEN NOT MATCHED THEN
  INSERT (fs_id, surl, category, isdir, local_ctime, local_mtime, server_ctime, server_mtime, md5, server_md5, path, play_forbid, size, adult_type, dlink)
  VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10, @p11, @p12, @p13, @p14, @p15);`
	if _, err = tx.ExecContext(ctx, q, f.FsID, surl, f.Category, f.IsDir, f.LocalCtime, f.LocalMtime,
		f.ServerCtime, f.ServerMtime, f.MD5, f.ServerMD5, f.Path, f.PlayForbid, f.Size, f.AdultType, f.DownloadLink); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM dbo.thumbnails WHERE fs_id=@p1`, f.FsID); err != nil {
		return err
	}
	for _, t := range f.Thumbnails {
		if _, err = tx.ExecContext(ctx, `INSERT INTO dbo.thumbnails (fs_id, thumb_type, url) VALUES (@p1,@p2,@p3)`, f.FsID, t.Type, t.URL); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *ShareStoreRepositoryMSSQL) Fetch(ctx context.Context, surl string) (*model.SharePayload, error) {
	row := r.db.QueryRowContext(ctx, `SELECT surl, share_id, uk, title, server_time, channel, errno, request_id, updated_at
        FROM dbo.shares WHERE surl=@p1`, surl)
	var s model.Share
	var title, channel, requestID sql.NullString
	if err := row.Scan(&s.Surl, &s.ShareID, &s.Uk, &title, &s.ServerTime, &channel, &s.Errno, &requestID, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.Title = title.String
	s.Channel = channel.String
	s.RequestID = requestID.String

	rows, err := r.db.QueryContext(ctx, `SELECT fs_id, surl, category, isdir, local_ctime, local_mtime, server_ctime, server_mtime,
            md5, server_md5, path, play_forbid, size, adult_type, dlink
        FROM dbo.media_files WHERE surl=@p1 ORDER BY fs_id`, surl)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payload := &model.SharePayload{Share: s}
	for rows.Next() {
		f, err := scanMediaFile(rows)
		if err != nil {
			return nil, err
		}
		payload.Files = append(payload.Files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range payload.Files {
		thumbs, err := r.fetchThumbnails(ctx, payload.Files[i].FsID)
		if err != nil {
			return nil, err
		}
		payload.Files[i].Thumbnails = thumbs
	}
	return payload, nil
}

func (r *ShareStoreRepositoryMSSQL) FetchFile(ctx context.Context, fsID int64) (*model.MediaFile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT fs_id, surl, category, isdir, local_ctime, local_mtime, server_ctime, server_mtime,
            md5, server_md5, path, play_forbid, size, adult_type, dlink
        FROM dbo.media_files WHERE fs_id=@p1`, fsID)
	f, err := scanMediaFile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	thumbs, err := r.fetchThumbnails(ctx, fsID)
	if err != nil {
		return nil, err
	}
	f.Thumbnails = thumbs
	return f, nil
}

func (r *ShareStoreRepositoryMSSQL) fetchThumbnails(ctx context.Context, fsID int64) ([]model.Thumbnail, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT fs_id, thumb_type, url FROM dbo.thumbnails WHERE fs_id=@p1 ORDER BY thumb_type`, fsID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Thumbnail
	for rows.Next() {
		var t model.Thumbnail
		if err := rows.Scan(&t.FsID, &t.Type, &t.URL); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
