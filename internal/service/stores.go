package service

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/repository"
	"time"
)

// 服务层只依赖以下接口，repository 包中的 gorm 实现满足它们

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	AddEnrolledCourse(ctx context.Context, userID, courseID string) (bool, error)
	IncrementCompletedLessons(ctx context.Context, userID string, delta int) error
	ListAll(ctx context.Context) ([]model.User, error)
	CountByRole(ctx context.Context) (map[model.UserRole]int, error)
	FindRecent(ctx context.Context, limit int) ([]model.User, error)
}

type CourseStore interface {
	Create(ctx context.Context, course *model.Course) error
	FindByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context) ([]model.Course, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Course, error)
	FindByCreator(ctx context.Context, userID string) ([]model.Course, error)
	Find(ctx context.Context, filter repository.CourseFilter) ([]model.Course, int, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	FindRecent(ctx context.Context, limit int) ([]model.Course, error)
}

type LessonStore interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	FindByID(ctx context.Context, id string) (*model.Lesson, error)
	FindByCourse(ctx context.Context, courseID string) ([]model.Lesson, error)
	FindByCourses(ctx context.Context, courseIDs []string) ([]model.Lesson, error)
	Save(ctx context.Context, lesson *model.Lesson) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	AddCompletion(ctx context.Context, lessonID, userID string) (bool, error)
	RemoveCompletion(ctx context.Context, lessonID, userID string) (bool, error)
}

type EnrollmentStore interface {
	Find(ctx context.Context, userID, courseID string) (*model.Enrollment, error)
	Create(ctx context.Context, userID, courseID string, now time.Time) (*model.Enrollment, bool, error)
	SetProgress(ctx context.Context, userID, courseID string, progress int, now time.Time) (*model.Enrollment, bool, error)
	FindByUser(ctx context.Context, userID string) ([]model.Enrollment, error)
	FindByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error)
}

type ForumStore interface {
	CreatePost(ctx context.Context, post *model.ForumPost) error
	FindPostByID(ctx context.Context, id string) (*model.ForumPost, error)
	ListPosts(ctx context.Context, filter repository.PostFilter) ([]model.ForumPost, error)
	MostActive(ctx context.Context, limit int) ([]model.ForumPost, error)
	FindPostsByIDs(ctx context.Context, ids []string) ([]model.ForumPost, error)
	CreateReply(ctx context.Context, reply *model.PostReply) error
	FindReplies(ctx context.Context, postID string) ([]model.PostReply, error)
	FindRepliesByAuthor(ctx context.Context, authorID string) ([]model.PostReply, error)
}

// Actor 发起操作的用户身份
type Actor struct {
	UserID string
	Role   model.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.Admin
}

var (
	_ UserStore       = (*repository.UserRepository)(nil)
	_ CourseStore     = (*repository.CourseRepository)(nil)
	_ LessonStore     = (*repository.LessonRepository)(nil)
	_ EnrollmentStore = (*repository.EnrollmentRepository)(nil)
	_ ForumStore      = (*repository.ForumRepository)(nil)
)
