package service

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/repository"
	"elearn_backend/internal/util"
	"elearn_backend/pkg/logger"
	"io"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type CourseInput struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	EstimatedTime string `json:"estimatedTime"`
	ImageURL      string `json:"imageUrl"`
	Category      string `json:"category"`
	Difficulty    string `json:"difficulty"`
	Language      string `json:"language"`
	// Featured 仅管理员可设置，nil 表示不修改
	Featured *bool `json:"featured"`
}

// CoursePage 分页后的课程列表
type CoursePage struct {
	Items []model.Course `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Pages int            `json:"pages"`
}

type CourseService struct {
	CourseRepo CourseStore
	LessonRepo LessonStore
	Storage    StorageProvider
}

func NewCourseService(courseRepo CourseStore, lessonRepo LessonStore, storage StorageProvider) *CourseService {
	return &CourseService{
		CourseRepo: courseRepo,
		LessonRepo: lessonRepo,
		Storage:    storage,
	}
}

// canModify 课程创建者或管理员
func canModify(actor Actor, course *model.Course) bool {
	return actor.IsAdmin() || (actor.Role.CanAuthor() && course.CreatedBy == actor.UserID)
}

func (s *CourseService) Create(ctx context.Context, actor Actor, in CourseInput) (*model.Course, error) {
	if !actor.Role.CanAuthor() || (in.Featured != nil && !actor.IsAdmin()) {
		return nil, util.ErrPermissionDenied
	}
	course := &model.Course{
		Title:         strings.TrimSpace(in.Title),
		Slug:          slug.Make(in.Title),
		Description:   in.Description,
		EstimatedTime: in.EstimatedTime,
		ImageURL:      in.ImageURL,
		Category:      strings.TrimSpace(in.Category),
		Difficulty:    strings.TrimSpace(in.Difficulty),
		Language:      strings.TrimSpace(in.Language),
		Featured:      in.Featured != nil && *in.Featured,
		CreatedBy:     actor.UserID,
	}
	if err := s.CourseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	logger.Log.Info("Course created", zap.String("course_id", course.ID), zap.String("created_by", actor.UserID))
	return course, nil
}

func (s *CourseService) Get(ctx context.Context, id string) (*model.Course, error) {
	return s.CourseRepo.FindByID(ctx, id)
}

// GetWithLessons 课程详情页数据
func (s *CourseService) GetWithLessons(ctx context.Context, id string) (*CourseWithLessons, error) {
	course, err := s.CourseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lessons, err := s.LessonRepo.FindByCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CourseWithLessons{Course: *course, Lessons: lessons}, nil
}

// List 按筛选条件分页，page 从 1 开始，pageSize 超出范围时取默认值或上限
func (s *CourseService) List(ctx context.Context, filter repository.CourseFilter) (*CoursePage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	switch {
	case filter.PageSize < 1:
		filter.PageSize = util.DefaultPageSize
	case filter.PageSize > util.MaxPageSize:
		filter.PageSize = util.MaxPageSize
	}
	filter.Keyword = strings.TrimSpace(filter.Keyword)

	courses, total, err := s.CourseRepo.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &CoursePage{
		Items: courses,
		Total: total,
		Page:  filter.Page,
		Pages: (total + filter.PageSize - 1) / filter.PageSize,
	}, nil
}

func (s *CourseService) ListByCreator(ctx context.Context, userID string) ([]model.Course, error) {
	return s.CourseRepo.FindByCreator(ctx, userID)
}

func (s *CourseService) loadForUpdate(ctx context.Context, actor Actor, id string) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, course) {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, actor Actor, id string, in CourseInput) (*model.Course, error) {
	course, err := s.loadForUpdate(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.Featured != nil && !actor.IsAdmin() {
		return nil, util.ErrPermissionDenied
	}
	fields := map[string]interface{}{
		"title":          strings.TrimSpace(in.Title),
		"slug":           slug.Make(in.Title),
		"description":    in.Description,
		"estimated_time": in.EstimatedTime,
		"category":       strings.TrimSpace(in.Category),
		"difficulty":     strings.TrimSpace(in.Difficulty),
		"language":       strings.TrimSpace(in.Language),
	}
	if in.Featured != nil {
		fields["featured"] = *in.Featured
	}
	// 改用外部链接时不再保留已上传的封面
	replaced := in.ImageURL != "" && in.ImageURL != course.ImageURL
	if replaced {
		fields["image_url"] = in.ImageURL
		fields["image_object"] = ""
	}
	if err := s.CourseRepo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	if replaced {
		s.removeObject(ctx, id, course.ImageObject)
	}
	return s.CourseRepo.FindByID(ctx, id)
}

// Delete 级联删除课程下的所有课时，并清理已上传的封面
func (s *CourseService) Delete(ctx context.Context, actor Actor, id string) error {
	course, err := s.loadForUpdate(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.CourseRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeObject(ctx, id, course.ImageObject)
	logger.Log.Info("Course deleted", zap.String("course_id", id), zap.String("by", actor.UserID))
	return nil
}

// removeObject 删除失败只记录日志，不影响已完成的数据库操作
func (s *CourseService) removeObject(ctx context.Context, courseID, objectName string) {
	if objectName == "" {
		return
	}
	if err := s.Storage.Delete(ctx, objectName); err != nil {
		logger.Log.Warn("Failed to delete course image",
			zap.String("course_id", courseID),
			zap.String("object", objectName),
			zap.Error(err))
	}
}

// UploadImage 上传课程封面并更新 imageUrl，扩展名不同的旧封面随后删除
func (s *CourseService) UploadImage(ctx context.Context, actor Actor, id, filename string, reader io.Reader, size int64, contentType string) (*model.Course, error) {
	course, err := s.loadForUpdate(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	objectName := util.CourseImageObjectName(id, filename)
	url, err := s.Storage.Upload(ctx, objectName, reader, size, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.CourseRepo.UpdateFields(ctx, id, map[string]interface{}{
		"image_url":    url,
		"image_object": objectName,
	}); err != nil {
		return nil, err
	}
	if course.ImageObject != objectName {
		s.removeObject(ctx, id, course.ImageObject)
	}
	return s.CourseRepo.FindByID(ctx, id)
}
