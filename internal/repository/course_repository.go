package repository

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"strings"

	"gorm.io/gorm"
)

// CourseFilter 课程列表筛选条件，空字段不参与过滤；PageSize 为 0 时不分页
type CourseFilter struct {
	Keyword    string
	Category   string
	Difficulty string
	Language   string
	Featured   *bool
	Page       int
	PageSize   int
}

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return translate(r.DB.WithContext(ctx).Create(course).Error, "course", nil)
}

func (r *CourseRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	if err := r.DB.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, translate(err, "course", util.ErrCourseNotFound)
	}
	return &course, nil
}

func (r *CourseRepository) List(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).Order("created_at DESC").Order("id ASC").Find(&courses).Error
	return courses, translate(err, "course", nil)
}

// FindByIDs 不存在的 ID 会被忽略
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Course, error) {
	if len(ids) == 0 {
		return []model.Course{}, nil
	}
	var courses []model.Course
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("created_at DESC").Order("id ASC").Find(&courses).Error
	return courses, translate(err, "course", nil)
}

func (r *CourseRepository) FindByCreator(ctx context.Context, userID string) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).Where("created_by = ?", userID).Order("created_at DESC").Order("id ASC").Find(&courses).Error
	return courses, translate(err, "course", nil)
}

// Find 按条件筛选并分页，返回当前页和符合条件的总数。关键字匹配标题或描述（不区分大小写）
func (r *CourseRepository) Find(ctx context.Context, filter CourseFilter) ([]model.Course, int, error) {
	query := r.DB.WithContext(ctx).Model(&model.Course{})
	if filter.Keyword != "" {
		like := "%" + strings.ToLower(filter.Keyword) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Difficulty != "" {
		query = query.Where("difficulty = ?", filter.Difficulty)
	}
	if filter.Language != "" {
		query = query.Where("language = ?", filter.Language)
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "course", nil)
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	var courses []model.Course
	err := query.Order("created_at DESC").Order("id ASC").Find(&courses).Error
	return courses, int(total), translate(err, "course", nil)
}

func (r *CourseRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	err := updateExisting(r.DB.WithContext(ctx), &model.Course{}, id, func(q *gorm.DB) error {
		return q.Updates(fields).Error
	})
	return translate(err, "course", util.ErrCourseNotFound)
}

// Delete 删除课程及其全部课时、选课记录，并从用户的已选课程中移除
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var userIDs []string
		if err := tx.Model(&model.Enrollment{}).Where("course_id = ?", id).Pluck("user_id", &userIDs).Error; err != nil {
			return err
		}
		for _, userID := range userIDs {
			if err := removeEnrolledCourse(tx, userID, id); err != nil {
				return err
			}
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Enrollment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Course{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrCourseNotFound
		}
		return nil
	})
	return translate(err, "course", util.ErrCourseNotFound)
}

func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&model.Course{}).Count(&total).Error
	return int(total), translate(err, "course", nil)
}

func (r *CourseRepository) FindRecent(ctx context.Context, limit int) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).Order("created_at DESC").Order("id ASC").Limit(limit).Find(&courses).Error
	return courses, translate(err, "course", nil)
}
