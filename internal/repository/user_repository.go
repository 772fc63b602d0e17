package repository

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"errors"
	"time"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.DB.WithContext(ctx).Create(user).Error, "user", nil)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user", util.ErrUserNotFound)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err, "user", util.ErrUserNotFound)
	}
	return &user, nil
}

// UpdateFields 更新指定字段，用户不存在时返回 ErrUserNotFound
func (r *UserRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	err := updateExisting(r.DB.WithContext(ctx), &model.User{}, id, func(q *gorm.DB) error {
		return q.Updates(fields).Error
	})
	return translate(err, "user", util.ErrUserNotFound)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.UpdateFields(ctx, id, map[string]interface{}{"last_login": at})
}

// AddEnrolledCourse 将课程加入用户的已选课程集合，返回是否新增
func (r *UserRepository) AddEnrolledCourse(ctx context.Context, userID, courseID string) (bool, error) {
	added := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := forUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		courses, ok := model.AddToSet(user.EnrolledCourses, courseID)
		if !ok {
			return nil
		}
		added = true
		return tx.Model(&model.User{}).Where("id = ?", userID).
			Update("enrolled_courses", datatypesJSON(courses)).Error
	})
	if err != nil {
		return false, translate(err, "user", util.ErrUserNotFound)
	}
	return added, nil
}

// removeEnrolledCourse 在调用方事务内把课程移出用户的已选集合，用户不存在时忽略
func removeEnrolledCourse(tx *gorm.DB, userID, courseID string) error {
	var user model.User
	if err := forUpdate(tx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	courses, ok := model.RemoveFromSet(user.EnrolledCourses, courseID)
	if !ok {
		return nil
	}
	return tx.Model(&model.User{}).Where("id = ?", userID).
		Update("enrolled_courses", datatypesJSON(courses)).Error
}

func (r *UserRepository) IncrementCompletedLessons(ctx context.Context, userID string, delta int) error {
	res := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		Update("completed_lessons_count", gorm.Expr("completed_lessons_count + ?", delta))
	if res.Error != nil {
		return translate(res.Error, "user", util.ErrUserNotFound)
	}
	if res.RowsAffected == 0 {
		return util.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).Order("created_at DESC").Order("id ASC").Find(&users).Error
	return users, translate(err, "user", nil)
}

// CountByRole 按角色统计用户数
func (r *UserRepository) CountByRole(ctx context.Context) (map[model.UserRole]int, error) {
	var rows []struct {
		Role  model.UserRole
		Total int
	}
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Select("role, COUNT(*) AS total").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "user", nil)
	}
	counts := make(map[model.UserRole]int, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Total
	}
	return counts, nil
}

func (r *UserRepository) FindRecent(ctx context.Context, limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).
		Order("created_at DESC").Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, translate(err, "user", nil)
}
