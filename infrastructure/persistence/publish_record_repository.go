package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/BLKOUTUK/comms-blkout-sub001/domain/model"
)

type PublishRecordRepository struct{ db *sql.DB }

func NewPublishRecordRepository(db *sql.DB) *PublishRecordRepository {
	return &PublishRecordRepository{db: db}
}

// Create appends the outcomes of one publish fan-out. Records are append-only;
// a re-publish is a new attempt, never an update.
func (r *PublishRecordRepository) Create(ctx context.Context, recs []*model.PublishRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	now := time.Now().UTC()
	for _, rec := range recs {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		q := `INSERT INTO publish_records (user_id, platform, media_url, media_type, caption, status, post_id, post_url, error_message, error_kind, created_at)
			  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`
		if err = tx.QueryRowContext(ctx, q, rec.UserID, rec.Platform, rec.MediaURL, rec.MediaType, rec.Caption, rec.Status, rec.PostID, rec.PostURL, rec.ErrorMessage, rec.ErrorKind, rec.CreatedAt).Scan(&rec.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *PublishRecordRepository) ListRecent(ctx context.Context, limit int) ([]*model.PublishRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, platform, media_url, media_type, caption, status, post_id, post_url, error_message, error_kind, created_at FROM publish_records ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.PublishRecord
	for rows.Next() {
		rec := &model.PublishRecord{}
		var postID, postURL, errMsg, errKind sql.NullString
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Platform, &rec.MediaURL, &rec.MediaType, &rec.Caption, &rec.Status, &postID, &postURL, &errMsg, &errKind, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if postID.Valid {
			v := postID.String
			rec.PostID = &v
		}
		if postURL.Valid {
			v := postURL.String
			rec.PostURL = &v
		}
		if errMsg.Valid {
			v := errMsg.String
			rec.ErrorMessage = &v
		}
		if errKind.Valid {
			v := errKind.String
			rec.ErrorKind = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
