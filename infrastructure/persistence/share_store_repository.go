package persistence

import (
	"context"
	"database/sql"
	"time"

	"terastream/domain/model"
	"terastream/infrastructure/logger"
)

// ShareStoreRepository implements the durable share store on PostgreSQL.
type ShareStoreRepository struct{ db *sql.DB }

func NewShareStoreRepository(db *sql.DB) *ShareStoreRepository {
	return &ShareStoreRepository{db: db}
}

// Store upserts the share row and each media file with a full thumbnail
// replacement. A failure on one file is logged and does not abort the rest.
func (r *ShareStoreRepository) Store(ctx context.Context, payload *model.SharePayload) error {
	s := payload.Share
	now := time.Now().UTC()
	q := `INSERT INTO shares (surl, share_id, uk, title, server_time, channel, errno, request_id, updated_at)
          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
          ON CONFLICT (surl) DO UPDATE SET
            share_id=EXCLUDED.share_id, uk=EXCLUDED.uk, title=EXCLUDED.title,
            server_time=EXCLUDED.server_time, channel=EXCLUDED.channel,
            errno=EXCLUDED.errno, request_id=EXCLUDED.request_id, updated_at=EXCLUDED.updated_at`
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

// storeFile upserts one file and replaces its thumbnail rows atomically.
func (r *ShareStoreRepository) storeFile(ctx context.Context, surl string, f *model.MediaFile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := `INSERT INTO media_files (fs_id, surl, category, isdir, local_ctime, local_mtime, server_ctime, server_mtime,
            md5, server_md5, path, play_forbid, size, adult_type, dlink)
          VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
          ON CONFLICT (fs_id) DO UPDATE SET
            surl=EXCLUDED.surl, category=EXCLUDED.category, isdir=EXCLUDED.isdir,
            local_ctime=EXCLUDED.local_ctime, local_mtime=EXCLUDED.local_mtime,
            server_ctime=EXCLUDED.server_ctime, server_mtime=EXCLUDED.server_mtime,
            md5=EXCLUDED.md5, server_md5=EXCLUDED.server_md5, path=EXCLUDED.path,
            play_forbid=EXCLUDED.play_forbid, size=EXCLUDED.size,
            adult_type=EXCLUDED.adult_type, dlink=EXCLUDED.dlink`
	if _, err = tx.ExecContext(ctx, q, f.FsID, surl, f.Category, f.IsDir, f.LocalCtime, f.LocalMtime,
		f.ServerCtime, f.ServerMtime, f.MD5, f.ServerMD5, f.Path, f.PlayForbid, f.Size, f.AdultType, f.DownloadLink); err != nil {
		return err
	}

	// Delete-then-insert keeps thumbnail rows in lockstep with the upstream set.
	if _, err = tx.ExecContext(ctx, `DELETE FROM thumbnails WHERE fs_id=$1`, f.FsID); err != nil {
		return err
	}
	for _, t := range f.Thumbnails {
		if _, err = tx.ExecContext(ctx, `INSERT INTO thumbnails (fs_id, thumb_type, url) VALUES ($1,$2,$3)`, f.FsID, t.Type, t.URL); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Fetch returns the share joined with its files and thumbnails, or nil when
// the surl has never been stored.
func (r *ShareStoreRepository) Fetch(ctx context.Context, surl string) (*model.SharePayload, error) {
	row := r.db.QueryRowContext(ctx, `SELECT surl, share_id, uk, title, server_time, channel, errno, request_id, updated_at
        FROM shares WHERE surl=$1`, surl)
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
        FROM media_files WHERE surl=$1 ORDER BY fs_id`, surl)
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

// FetchFile returns a single stored file with its thumbnails, or nil when the
// fs_id is unknown.
func (r *ShareStoreRepository) FetchFile(ctx context.Context, fsID int64) (*model.MediaFile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT fs_id, surl, category, isdir, local_ctime, local_mtime, server_ctime, server_mtime,
            md5, server_md5, path, play_forbid, size, adult_type, dlink
        FROM media_files WHERE fs_id=$1`, fsID)
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

func (r *ShareStoreRepository) fetchThumbnails(ctx context.Context, fsID int64) ([]model.Thumbnail, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT fs_id, thumb_type, url FROM thumbnails WHERE fs_id=$1 ORDER BY thumb_type`, fsID)
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

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanMediaFile(row rowScanner) (*model.MediaFile, error) {
	f := &model.MediaFile{}
	var md5, serverMD5, path, dlink sql.NullString
	if err := row.Scan(&f.FsID, &f.Surl, &f.Category, &f.IsDir, &f.LocalCtime, &f.LocalMtime,
		&f.ServerCtime, &f.ServerMtime, &md5, &serverMD5, &path, &f.PlayForbid, &f.Size, &f.AdultType, &dlink); err != nil {
		return nil, err
	}
	f.MD5 = md5.String
	f.ServerMD5 = serverMD5.String
	f.Path = path.String
	f.DownloadLink = dlink.String
	return f, nil
}
