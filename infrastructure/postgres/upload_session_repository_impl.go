package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-video-service/domain/models"
	"course-video-service/domain/repositories"
)

type UploadSessionRepositoryImpl struct {
	db *gorm.DB
}

func NewUploadSessionRepository(db *gorm.DB) repositories.UploadSessionRepository {
	return &UploadSessionRepositoryImpl{db: db}
}

func (r *UploadSessionRepositoryImpl) Create(ctx context.Context, session *models.UploadSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *UploadSessionRepositoryImpl) Upsert(ctx context.Context, session *models.UploadSession) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}},
			UpdateAll: true,
		}).
		Create(session).Error
}

func (r *UploadSessionRepositoryImpl) GetByVideoID(ctx context.Context, videoID uuid.UUID) (*models.UploadSession, error) {
	var session models.UploadSession
	err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		First(&session).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

func (r *UploadSessionRepositoryImpl) MarkConfirmed(ctx context.Context, videoID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.UploadSession{}).
		Where("video_id = ? AND confirmed_at IS NULL", videoID).
		Update("confirmed_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *UploadSessionRepositoryImpl) Delete(ctx context.Context, videoID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Delete(&models.UploadSession{}).Error
}

func (r *UploadSessionRepositoryImpl) ListAbandoned(ctx context.Context, before time.Time, limit int) ([]*models.UploadSession, error) {
	var sessions []*models.UploadSession
	err := r.db.WithContext(ctx).
		Where("confirmed_at IS NULL AND expires_at < ?", before).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

func (r *UploadSessionRepositoryImpl) DeleteConfirmedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("confirmed_at IS NOT NULL AND confirmed_at < ?", before).
		Delete(&models.UploadSession{})
	return result.RowsAffected, result.Error
}
