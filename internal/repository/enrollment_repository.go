package repository

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Find(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.WithContext(ctx).First(&enrollment, "id = ?", model.EnrollmentID(userID, courseID)).Error
	if err != nil {
		return nil, translate(err, "enrollment", util.ErrEnrollmentNotFound)
	}
	return &enrollment, nil
}

// Create 已存在时不覆盖，返回库中的记录以及是否为新建
func (r *EnrollmentRepository) Create(ctx context.Context, userID, courseID string, now time.Time) (*model.Enrollment, bool, error) {
	enrollment := &model.Enrollment{
		ID:             model.EnrollmentID(userID, courseID),
		UserID:         userID,
		CourseID:       courseID,
		Progress:       0,
		IsCompleted:    false,
		EnrolledAt:     now,
		LastAccessedAt: now,
	}
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(enrollment)
	if res.Error != nil {
		return nil, false, translate(res.Error, "enrollment", nil)
	}
	if res.RowsAffected == 1 {
		return enrollment, true, nil
	}
	existing, err := r.Find(ctx, userID, courseID)
	return existing, false, err
}

// SetProgress 写入进度并维护 isCompleted。
// 进度首次达到 100 时（completion_counted 仍为 false）在同一事务中将用户的
// completedCoursesCount 加一，返回 counted=true；之后重复的 100 不再计数。
func (r *EnrollmentRepository) SetProgress(ctx context.Context, userID, courseID string, progress int, now time.Time) (*model.Enrollment, bool, error) {
	id := model.EnrollmentID(userID, courseID)
	var (
		enrollment model.Enrollment
		counted    bool
	)
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := updateExisting(tx, &model.Enrollment{}, id, func(q *gorm.DB) error {
			return q.Updates(map[string]interface{}{
				"progress":         progress,
				"is_completed":     progress == 100,
				"last_accessed_at": now,
			}).Error
		})
		if err != nil {
			return err
		}

		if progress == 100 {
			guard := tx.Model(&model.Enrollment{}).
				Where("id = ? AND completion_counted = ?", id, false).
				Update("completion_counted", true)
			if guard.Error != nil {
				return guard.Error
			}
			if guard.RowsAffected == 1 {
				inc := tx.Model(&model.User{}).Where("id = ?", userID).
					Update("completed_courses_count", gorm.Expr("completed_courses_count + 1"))
				if inc.Error != nil {
					return inc.Error
				}
				counted = true
			}
		}

		return tx.First(&enrollment, "id = ?", id).Error
	})
	if err != nil {
		return nil, false, translate(err, "enrollment", util.ErrEnrollmentNotFound)
	}
	return &enrollment, counted, nil
}

func (r *EnrollmentRepository) FindByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("enrolled_at ASC").Find(&enrollments).Error
	return enrollments, translate(err, "enrollment", nil)
}

func (r *EnrollmentRepository) FindByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.WithContext(ctx).Where("course_id = ?", courseID).Order("enrolled_at ASC").Find(&enrollments).Error
	return enrollments, translate(err, "enrollment", nil)
}
