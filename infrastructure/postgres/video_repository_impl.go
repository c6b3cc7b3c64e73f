package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"course-video-service/domain/dto"
	"course-video-service/domain/models"
	"course-video-service/domain/repositories"
)

type VideoRepositoryImpl struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) repositories.VideoRepository {
	return &VideoRepositoryImpl{db: db}
}

func (r *VideoRepositoryImpl) Create(ctx context.Context, video *models.Video) error {
	return r.db.WithContext(ctx).Create(video).Error
}

func (r *VideoRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	var video models.Video
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&video).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &video, nil
}

// ListWithFilters ดึง videos พร้อม filter, search, pagination
func (r *VideoRepositoryImpl) ListWithFilters(ctx context.Context, params *dto.VideoFilterRequest) ([]*models.Video, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Video{})

	if params.Search != "" {
		query = query.Where("title ILIKE ?", "%"+params.Search+"%")
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := dto.NormalizePage(params.Page, params.Limit)

	var videos []*models.Video
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&videos).Error
	if err != nil {
		return nil, 0, err
	}

	return videos, total, nil
}

func (r *VideoRepositoryImpl) UpdateMetadata(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if _, ok := fields["status"]; ok {
		return fmt.Errorf("status must change through TransitionStatus")
	}

	result := r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *VideoRepositoryImpl) CountByStatus(ctx context.Context, status models.VideoStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// TransitionStatus UPDATE ... WHERE id = ? AND status IN (sources) ผู้ชนะมีได้คนเดียว
func (r *VideoRepositoryImpl) TransitionStatus(ctx context.Context, id uuid.UUID, to models.VideoStatus, fields map[string]interface{}) error {
	sources := models.SourcesFor(to)
	if len(sources) == 0 {
		return fmt.Errorf("%w: nothing transitions to %s", models.ErrInvalidTransition, to)
	}

	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to

	result := r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("id = ? AND status IN ?", id, sources).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	return r.explainNoRows(ctx, id, to)
}

// SaveRenditionProgress เฉพาะเมื่อยัง processing อยู่
func (r *VideoRepositoryImpl) SaveRenditionProgress(ctx context.Context, id uuid.UUID, renditions, failed models.Renditions) error {
	result := r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("id = ? AND status = ?", id, models.VideoStatusProcessing).
		Updates(map[string]interface{}{
			"renditions":        renditions,
			"failed_renditions": failed,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.explainNoRows(ctx, id, models.VideoStatusProcessing)
	}
	return nil
}

// MarkFailed เปลี่ยนเป็น failed พร้อมต่อท้าย error_history ใน UPDATE เดียว
func (r *VideoRepositoryImpl) MarkFailed(ctx context.Context, id uuid.UUID, record models.ErrorRecord) error {
	entry, err := json.Marshal([]models.ErrorRecord{record})
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("id = ? AND status IN ?", id, models.SourcesFor(models.VideoStatusFailed)).
		Updates(map[string]interface{}{
			"status":           models.VideoStatusFailed,
			"processing_error": record.Error,
			"error_history":    gorm.Expr("COALESCE(error_history, '[]'::jsonb) || ?::jsonb", string(entry)),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.explainNoRows(ctx, id, models.VideoStatusFailed)
	}
	return nil
}

// GetStuckProcessing ดึง videos ที่ processing_started_at เก่ากว่า threshold
func (r *VideoRepositoryImpl) GetStuckProcessing(ctx context.Context, threshold time.Time) ([]*models.Video, error) {
	var videos []*models.Video
	err := r.db.WithContext(ctx).
		Where("status = ? AND processing_started_at IS NOT NULL AND processing_started_at < ?", models.VideoStatusProcessing, threshold).
		Order("processing_started_at ASC").
		Find(&videos).Error
	return videos, err
}

// DeleteDetachingLessons ลบ record และถอดออกจาก lessons ใน transaction เดียว
// SELECT ... FOR UPDATE กันไม่ให้ trigger แทรกระหว่างตรวจสถานะกับลบ
func (r *VideoRepositoryImpl) DeleteDetachingLessons(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var video models.Video
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			Where("id = ?", id).
			First(&video).Error
		if err != nil {
			return translateError(err)
		}
		if video.IsProcessing() {
			return fmt.Errorf("%w: video is processing", models.ErrInvalidTransition)
		}

		if err := tx.Model(&models.Lesson{}).
			Where("video_id = ?", id).
			Update("video_id", nil).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", id).Delete(&models.Video{}).Error
	})
}

// explainNoRows แยกระหว่าง "ไม่มี record" กับ "สถานะไม่อนุญาต"
func (r *VideoRepositoryImpl) explainNoRows(ctx context.Context, id uuid.UUID, to models.VideoStatus) error {
	var current models.Video
	err := r.db.WithContext(ctx).
		Select("id", "status").
		Where("id = ?", id).
		First(&current).Error
	if err != nil {
		return translateError(err)
	}
	return models.ValidateTransition(current.Status, to)
}
