package service

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"elearn_backend/pkg/logger"
	"elearn_backend/pkg/monitoring"
	"elearn_backend/pkg/tracing"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type LessonInput struct {
	Title           string               `json:"title" binding:"required"`
	Description     string               `json:"description"`
	Content         []model.ContentBlock `json:"content"`
	Order           int                  `json:"order"`
	DurationMinutes int                  `json:"durationMinutes"`
	VideoURL        string               `json:"videoUrl"`
}

// QuizResult 测验作答结果，不影响课时完成状态
type QuizResult struct {
	QuizID  string `json:"quizId"`
	Correct bool   `json:"correct"`
}

type LessonService struct {
	CourseRepo  CourseStore
	LessonRepo  LessonStore
	UserRepo    UserStore
	Enrollments *EnrollmentService
}

func NewLessonService(courseRepo CourseStore, lessonRepo LessonStore, userRepo UserStore, enrollments *EnrollmentService) *LessonService {
	return &LessonService{
		CourseRepo:  courseRepo,
		LessonRepo:  lessonRepo,
		UserRepo:    userRepo,
		Enrollments: enrollments,
	}
}

func validateContent(blocks []model.ContentBlock) error {
	for i, b := range blocks {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%w: block %d: %v", util.ErrInvalidContentBlock, i, err)
		}
	}
	return nil
}

// normalizeQuizIDs 未指定 ID 的测验分配新 ID
func normalizeQuizIDs(blocks []model.ContentBlock) {
	for i := range blocks {
		if q := blocks[i].Quiz; q != nil && q.ID == "" {
			q.ID = model.GenerateUUID()
		}
	}
}

func (s *LessonService) ownedCourse(ctx context.Context, actor Actor, courseID string) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, course) {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

// checkOrder order 在课程内唯一，exceptID 为正在更新的课时
func (s *LessonService) checkOrder(ctx context.Context, courseID string, order int, exceptID string) error {
	lessons, err := s.LessonRepo.FindByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	for _, l := range lessons {
		if l.Order == order && l.ID != exceptID {
			return fmt.Errorf("%w: order %d", util.ErrDuplicateLessonOrder, order)
		}
	}
	return nil
}

// reconcile 课时增删会改变课程进度，立即对齐已有选课记录。失败时由定时任务补偿
func (s *LessonService) reconcile(ctx context.Context, courseID string) {
	fixed, err := s.Enrollments.Reconcile(ctx, courseID)
	if err != nil {
		logger.Log.Warn("Progress reconciliation after lesson change failed",
			zap.String("course_id", courseID),
			zap.Error(err))
		return
	}
	if fixed > 0 {
		logger.Log.Info("Progress reconciled after lesson change",
			zap.String("course_id", courseID),
			zap.Int("fixed", fixed))
	}
}

func (s *LessonService) Create(ctx context.Context, actor Actor, courseID string, in LessonInput) (*model.Lesson, error) {
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	if err := s.checkOrder(ctx, courseID, in.Order, ""); err != nil {
		return nil, err
	}
	normalizeQuizIDs(in.Content)
	lesson := &model.Lesson{
		CourseID:        courseID,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Content:         in.Content,
		Order:           in.Order,
		DurationMinutes: in.DurationMinutes,
		VideoURL:        in.VideoURL,
		CompletedBy:     []string{},
	}
	if lesson.Content == nil {
		lesson.Content = []model.ContentBlock{}
	}
	if err := s.LessonRepo.Create(ctx, lesson); err != nil {
		return nil, err
	}
	s.reconcile(ctx, courseID)
	return lesson, nil
}

func (s *LessonService) Get(ctx context.Context, id string) (*model.Lesson, error) {
	return s.LessonRepo.FindByID(ctx, id)
}

func (s *LessonService) ListByCourse(ctx context.Context, courseID string) ([]model.Lesson, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.LessonRepo.FindByCourse(ctx, courseID)
}

func (s *LessonService) Update(ctx context.Context, actor Actor, id string, in LessonInput) (*model.Lesson, error) {
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	lesson, err := s.LessonRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCourse(ctx, actor, lesson.CourseID); err != nil {
		return nil, err
	}
	if err := s.checkOrder(ctx, lesson.CourseID, in.Order, lesson.ID); err != nil {
		return nil, err
	}
	normalizeQuizIDs(in.Content)
	lesson.Title = strings.TrimSpace(in.Title)
	lesson.Description = in.Description
	lesson.Content = in.Content
	if lesson.Content == nil {
		lesson.Content = []model.ContentBlock{}
	}
	lesson.Order = in.Order
	lesson.DurationMinutes = in.DurationMinutes
	lesson.VideoURL = in.VideoURL
	if err := s.LessonRepo.Save(ctx, lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) Delete(ctx context.Context, actor Actor, id string) error {
	lesson, err := s.LessonRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.ownedCourse(ctx, actor, lesson.CourseID); err != nil {
		return err
	}
	if err := s.LessonRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.reconcile(ctx, lesson.CourseID)
	return nil
}

func (s *LessonService) lessonInCourse(ctx context.Context, courseID, lessonID string) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.CourseID != courseID {
		return nil, util.ErrLessonNotFound
	}
	return lesson, nil
}

// CompleteLesson 标记课时完成：先选课，再加入完成集合，最后按完成集合重算课程进度
func (s *LessonService) CompleteLesson(ctx context.Context, userID, courseID, lessonID string) (enrollment *model.Enrollment, err error) {
	ctx, span := tracing.StartSpan(ctx, "LessonService.CompleteLesson", userID, courseID)
	defer func() { tracing.EndSpan(span, err) }()

	if _, err = s.lessonInCourse(ctx, courseID, lessonID); err != nil {
		return nil, err
	}
	if _, err = s.Enrollments.Enroll(ctx, userID, courseID); err != nil {
		return nil, err
	}

	added, err := s.LessonRepo.AddCompletion(ctx, lessonID, userID)
	if err != nil {
		return nil, err
	}
	if added {
		if err = s.UserRepo.IncrementCompletedLessons(ctx, userID, 1); err != nil {
			return nil, err
		}
		monitoring.LessonCompletionsTotal.Inc()
		logger.Log.Info("Lesson completed",
			zap.String("user_id", userID),
			zap.String("lesson_id", lessonID))
	}

	return s.Enrollments.SyncProgress(ctx, userID, courseID)
}

// UncompleteLesson 撤销完成标记并重算进度
func (s *LessonService) UncompleteLesson(ctx context.Context, userID, courseID, lessonID string) (*model.Enrollment, error) {
	if _, err := s.lessonInCourse(ctx, courseID, lessonID); err != nil {
		return nil, err
	}
	if _, err := s.Enrollments.GetEnrollment(ctx, userID, courseID); err != nil {
		return nil, err
	}
	removed, err := s.LessonRepo.RemoveCompletion(ctx, lessonID, userID)
	if err != nil {
		return nil, err
	}
	if removed {
		if err := s.UserRepo.IncrementCompletedLessons(ctx, userID, -1); err != nil {
			return nil, err
		}
	}
	return s.Enrollments.SyncProgress(ctx, userID, courseID)
}

// SubmitQuizAnswer 只判断答案是否正确，完成课时需要显式调用 CompleteLesson
func (s *LessonService) SubmitQuizAnswer(ctx context.Context, lessonID, quizID, answer string) (*QuizResult, error) {
	lesson, err := s.LessonRepo.FindByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	quiz := lesson.FindQuiz(quizID)
	if quiz == nil {
		return nil, util.ErrQuizNotFound
	}
	return &QuizResult{QuizID: quiz.ID, Correct: answer == quiz.CorrectAnswer}, nil
}
