package service

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"elearn_backend/pkg/logger"
	"elearn_backend/pkg/monitoring"
	"elearn_backend/pkg/tracing"
	"errors"
	"time"

	"go.uber.org/zap"
)

type EnrollmentService struct {
	UserRepo       UserStore
	CourseRepo     CourseStore
	LessonRepo     LessonStore
	EnrollmentRepo EnrollmentStore
	Notifier       ProgressNotifier
	Now            func() time.Time
}

func NewEnrollmentService(userRepo UserStore, courseRepo CourseStore, lessonRepo LessonStore, enrollmentRepo EnrollmentStore) *EnrollmentService {
	return &EnrollmentService{
		UserRepo:       userRepo,
		CourseRepo:     courseRepo,
		LessonRepo:     lessonRepo,
		EnrollmentRepo: enrollmentRepo,
		Now:            time.Now,
	}
}

func (s *EnrollmentService) notify(userID, eventType string, enrollment *model.Enrollment) {
	if s.Notifier != nil {
		s.Notifier.Notify(userID, ProgressEvent{Type: eventType, Data: enrollment})
	}
}

// EnrolledCourse 课程及当前用户的选课状态
type EnrolledCourse struct {
	model.Course
	Progress       int       `json:"progress"`
	IsCompleted    bool      `json:"isCompleted"`
	EnrolledAt     time.Time `json:"enrolledAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
}

func (s *EnrollmentService) checkUserAndCourse(ctx context.Context, userID, courseID string) error {
	if _, err := s.UserRepo.FindByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		return err
	}
	return nil
}

// Enroll 幂等：已选课时直接返回现有记录
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID string) (enrollment *model.Enrollment, err error) {
	ctx, span := tracing.StartSpan(ctx, "EnrollmentService.Enroll", userID, courseID)
	defer func() { tracing.EndSpan(span, err) }()

	if err = s.checkUserAndCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}

	if _, err = s.UserRepo.AddEnrolledCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}

	enrollment, created, err := s.EnrollmentRepo.Create(ctx, userID, courseID, s.Now())
	if err != nil {
		return nil, err
	}
	if created {
		monitoring.EnrollmentsTotal.Inc()
		logger.Log.Info("User enrolled in course",
			zap.String("user_id", userID),
			zap.String("course_id", courseID))
		s.notify(userID, EventEnrolled, enrollment)
	}
	return enrollment, nil
}

// RecordProgress 写入课程进度，进度首次达到 100 时用户完成课程数加一
func (s *EnrollmentService) RecordProgress(ctx context.Context, userID, courseID string, progress int) (enrollment *model.Enrollment, err error) {
	if progress < 0 || progress > 100 {
		return nil, util.ErrInvalidProgressValue
	}

	ctx, span := tracing.StartSpan(ctx, "EnrollmentService.RecordProgress", userID, courseID)
	defer func() { tracing.EndSpan(span, err) }()

	if err = s.checkUserAndCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}

	enrollment, counted, err := s.EnrollmentRepo.SetProgress(ctx, userID, courseID, progress, s.Now())
	if err != nil {
		return nil, err
	}
	if counted {
		monitoring.CourseCompletionsTotal.Inc()
		logger.Log.Info("Course completed",
			zap.String("user_id", userID),
			zap.String("course_id", courseID))
		s.notify(userID, EventCourseCompleted, enrollment)
	} else {
		s.notify(userID, EventProgress, enrollment)
	}
	return enrollment, nil
}

func (s *EnrollmentService) GetEnrollment(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	return s.EnrollmentRepo.Find(ctx, userID, courseID)
}

// ListEnrolledCourses 返回用户已选的课程，已被删除的课程会被跳过
func (s *EnrollmentService) ListEnrolledCourses(ctx context.Context, userID string) ([]EnrolledCourse, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := s.CourseRepo.FindByIDs(ctx, user.EnrolledCourses)
	if err != nil {
		return nil, err
	}
	enrollments, err := s.EnrollmentRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byCourse := make(map[string]model.Enrollment, len(enrollments))
	for _, e := range enrollments {
		byCourse[e.CourseID] = e
	}

	result := make([]EnrolledCourse, 0, len(courses))
	for _, c := range courses {
		item := EnrolledCourse{Course: c}
		if e, ok := byCourse[c.ID]; ok {
			item.Progress = e.Progress
			item.IsCompleted = e.IsCompleted
			item.EnrolledAt = e.EnrolledAt
			item.LastAccessedAt = e.LastAccessedAt
		}
		result = append(result, item)
	}
	return result, nil
}

// SyncProgress 根据课时完成集合重新计算某用户的课程进度并写入
func (s *EnrollmentService) SyncProgress(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	lessons, err := s.LessonRepo.FindByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.RecordProgress(ctx, userID, courseID, CalculateCourseProgress(userID, lessons))
}

// Reconcile 将课程下所有选课记录的缓存进度与课时完成集合对齐，返回修正的记录数
func (s *EnrollmentService) Reconcile(ctx context.Context, courseID string) (int, error) {
	lessons, err := s.LessonRepo.FindByCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}
	enrollments, err := s.EnrollmentRepo.FindByCourse(ctx, courseID)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, e := range enrollments {
		want := CalculateCourseProgress(e.UserID, lessons)
		if want == e.Progress && e.IsCompleted == (want == 100) {
			continue
		}
		if _, err := s.RecordProgress(ctx, e.UserID, courseID, want); err != nil {
			if errors.Is(err, util.ErrUserNotFound) {
				logger.Log.Warn("Skipping enrollment of missing user",
					zap.String("user_id", e.UserID),
					zap.String("course_id", courseID))
				continue
			}
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}
