package service

import (
	"context"
	"elearn_backend/internal/util"
	"errors"
)

// NavigationService 在用户会话上执行导航，课程或课时不存在时回退而不是报错
type NavigationService struct {
	Sessions   *SessionManager
	CourseRepo CourseStore
	LessonRepo LessonStore
	Lessons    *LessonService
}

func NewNavigationService(sessions *SessionManager, courseRepo CourseStore, lessonRepo LessonStore, lessons *LessonService) *NavigationService {
	return &NavigationService{
		Sessions:   sessions,
		CourseRepo: courseRepo,
		LessonRepo: lessonRepo,
		Lessons:    lessons,
	}
}

func (s *NavigationService) session(userID string) (*Session, error) {
	return s.Sessions.Get(userID)
}

func (s *NavigationService) State(ctx context.Context, userID string) (NavState, error) {
	sess, err := s.session(userID)
	if err != nil {
		return NavState{}, err
	}
	return sess.NavState(), nil
}

func (s *NavigationService) SelectCourse(ctx context.Context, userID, courseID string) (NavState, error) {
	sess, err := s.session(userID)
	if err != nil {
		return NavState{}, err
	}
	return sess.Navigate(func(n *Navigator) error {
		if n.State().View != ViewCourseList {
			return n.SelectCourse(courseID)
		}
		if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
			if errors.Is(err, util.ErrCourseNotFound) {
				n.FallbackToCourseList()
				return nil
			}
			return err
		}
		return n.SelectCourse(courseID)
	})
}

func (s *NavigationService) SelectLesson(ctx context.Context, userID, lessonID string) (NavState, error) {
	sess, err := s.session(userID)
	if err != nil {
		return NavState{}, err
	}
	return sess.Navigate(func(n *Navigator) error {
		state := n.State()
		if state.View != ViewCourseDetail {
			return n.SelectLesson(lessonID)
		}
		if fallback, err := s.checkCourse(ctx, n, state.CourseID); fallback || err != nil {
			return err
		}
		lesson, err := s.LessonRepo.FindByID(ctx, lessonID)
		if err != nil {
			if errors.Is(err, util.ErrLessonNotFound) {
				n.FallbackToCourseDetail()
				return nil
			}
			return err
		}
		if lesson.CourseID != state.CourseID {
			n.FallbackToCourseDetail()
			return nil
		}
		return n.SelectLesson(lessonID)
	})
}

// checkCourse 课程不存在时回退到课程列表，返回是否已回退
func (s *NavigationService) checkCourse(ctx context.Context, n *Navigator, courseID string) (bool, error) {
	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			n.FallbackToCourseList()
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (s *NavigationService) Back(ctx context.Context, userID string) (NavState, error) {
	sess, err := s.session(userID)
	if err != nil {
		return NavState{}, err
	}
	return sess.Navigate(func(n *Navigator) error {
		state := n.State()
		if err := n.Back(); err != nil {
			return err
		}
		// 从课时返回时课程可能已被删除
		if state.View == ViewLessonView {
			_, err := s.checkCourse(ctx, n, state.CourseID)
			return err
		}
		return nil
	})
}

func (s *NavigationService) Step(ctx context.Context, userID string, forward bool) (NavState, error) {
	sess, err := s.session(userID)
	if err != nil {
		return NavState{}, err
	}
	return sess.Navigate(func(n *Navigator) error {
		state := n.State()
		if state.View != ViewLessonView {
			if forward {
				return n.NextStep(0)
			}
			return n.PrevStep()
		}
		// 课程删除会级联删除课时，先确认课程仍存在
		if fallback, err := s.checkCourse(ctx, n, state.CourseID); fallback || err != nil {
			return err
		}
		lesson, err := s.LessonRepo.FindByID(ctx, state.LessonID)
		if err != nil {
			if errors.Is(err, util.ErrLessonNotFound) {
				n.FallbackToCourseDetail()
				return nil
			}
			return err
		}
		if forward {
			return n.NextStep(len(lesson.Content))
		}
		return n.PrevStep()
	})
}

// Complete 记录课时完成后回到课程详情，记录失败时状态不变
func (s *NavigationService) Complete(ctx context.Context, userID string) (NavState, error) {
	sess, err := s.session(userID)
	if err != nil {
		return NavState{}, err
	}
	return sess.Navigate(func(n *Navigator) error {
		state := n.State()
		if state.View != ViewLessonView {
			return n.Complete()
		}
		if fallback, err := s.checkCourse(ctx, n, state.CourseID); fallback || err != nil {
			return err
		}
		if _, err := s.Lessons.CompleteLesson(ctx, userID, state.CourseID, state.LessonID); err != nil {
			switch {
			case errors.Is(err, util.ErrCourseNotFound):
				n.FallbackToCourseList()
				return nil
			case errors.Is(err, util.ErrLessonNotFound):
				n.FallbackToCourseDetail()
				return nil
			}
			return err
		}
		return n.Complete()
	})
}
