package repository

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"errors"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

// translateLesson (course_id, sort_order) 唯一索引冲突映射为 ErrDuplicateLessonOrder
func translateLesson(err error, notFound error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return util.ErrDuplicateLessonOrder
	}
	return translate(err, "lesson", notFound)
}

func (r *LessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	return translateLesson(r.DB.WithContext(ctx).Create(lesson).Error, nil)
}

func (r *LessonRepository) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := r.DB.WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return nil, translate(err, "lesson", util.ErrLessonNotFound)
	}
	return &lesson, nil
}

// FindByCourse 按 order 升序
func (r *LessonRepository) FindByCourse(ctx context.Context, courseID string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("sort_order ASC").Order("id ASC").
		Find(&lessons).Error
	return lessons, translate(err, "lesson", nil)
}

func (r *LessonRepository) FindByCourses(ctx context.Context, courseIDs []string) ([]model.Lesson, error) {
	if len(courseIDs) == 0 {
		return []model.Lesson{}, nil
	}
	var lessons []model.Lesson
	err := r.DB.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order("course_id ASC").Order("sort_order ASC").Order("id ASC").
		Find(&lessons).Error
	return lessons, translate(err, "lesson", nil)
}

// Save 更新课时内容字段，completedBy 只能通过 AddCompletion/RemoveCompletion 修改
func (r *LessonRepository) Save(ctx context.Context, lesson *model.Lesson) error {
	err := updateExisting(r.DB.WithContext(ctx), &model.Lesson{}, lesson.ID, func(q *gorm.DB) error {
		return q.Select("title", "description", "content", "sort_order", "duration_minutes", "video_url").
			Updates(lesson).Error
	})
	return translateLesson(err, util.ErrLessonNotFound)
}

func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&model.Lesson{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "lesson", util.ErrLessonNotFound)
	}
	if res.RowsAffected == 0 {
		return util.ErrLessonNotFound
	}
	return nil
}

func (r *LessonRepository) Count(ctx context.Context) (int, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&model.Lesson{}).Count(&total).Error
	return int(total), translate(err, "lesson", nil)
}

// AddCompletion 将用户加入 completedBy，返回是否新增
func (r *LessonRepository) AddCompletion(ctx context.Context, lessonID, userID string) (bool, error) {
	return r.mutateCompletion(ctx, lessonID, func(ids []string) ([]string, bool) {
		return model.AddToSet(ids, userID)
	})
}

// RemoveCompletion 将用户移出 completedBy，返回是否移除
func (r *LessonRepository) RemoveCompletion(ctx context.Context, lessonID, userID string) (bool, error) {
	return r.mutateCompletion(ctx, lessonID, func(ids []string) ([]string, bool) {
		return model.RemoveFromSet(ids, userID)
	})
}

func (r *LessonRepository) mutateCompletion(ctx context.Context, lessonID string, fn func([]string) ([]string, bool)) (bool, error) {
	changed := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lesson model.Lesson
		if err := forUpdate(tx).First(&lesson, "id = ?", lessonID).Error; err != nil {
			return err
		}
		ids, ok := fn(lesson.CompletedBy)
		if !ok {
			return nil
		}
		changed = true
		return tx.Model(&model.Lesson{}).Where("id = ?", lessonID).
			Update("completed_by", datatypesJSON(ids)).Error
	})
	if err != nil {
		return false, translate(err, "lesson", util.ErrLessonNotFound)
	}
	return changed, nil
}
