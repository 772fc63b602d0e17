package service

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEnrollmentService_EnrollIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c, _ := env.course(t, teacher, 2)

	first, err := env.enrollmentSvc.Enroll(ctx, student.ID, c.ID)
	if err != nil {
		t.Fatalf("first Enroll: %v", err)
	}
	second, err := env.enrollmentSvc.Enroll(ctx, student.ID, c.ID)
	if err != nil {
		t.Fatalf("second Enroll: %v", err)
	}
	if first.ID != second.ID || !first.EnrolledAt.Equal(second.EnrolledAt) || second.Progress != 0 || second.IsCompleted {
		t.Fatalf("enrollment changed: first=%+v second=%+v", first, second)
	}
	u := env.reload(t, student.ID)
	if len(u.EnrolledCourses) != 1 || u.EnrolledCourses[0] != c.ID {
		t.Fatalf("enrolledCourses: want=[%s] got=%v", c.ID, u.EnrolledCourses)
	}
}

func TestEnrollmentService_EnrollMissingReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	c, _ := env.course(t, teacher, 0)

	if _, err := env.enrollmentSvc.Enroll(ctx, "ghost", c.ID); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("missing user: want=%v got=%v", util.ErrUserNotFound, err)
	}
	if _, err := env.enrollmentSvc.Enroll(ctx, teacher.ID, "ghost"); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("missing course: want=%v got=%v", util.ErrCourseNotFound, err)
	}
}

func TestEnrollmentService_RecordProgressCompletesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c, _ := env.course(t, teacher, 1)

	if _, err := env.enrollmentSvc.Enroll(ctx, student.ID, c.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	before := env.reload(t, student.ID).CompletedCoursesCount

	e, err := env.enrollmentSvc.RecordProgress(ctx, student.ID, c.ID, 100)
	if err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if !e.IsCompleted || e.Progress != 100 {
		t.Fatalf("enrollment: want completed at 100 got=%+v", e)
	}
	if _, err := env.enrollmentSvc.RecordProgress(ctx, student.ID, c.ID, 100); err != nil {
		t.Fatalf("repeat RecordProgress: %v", err)
	}
	if got := env.reload(t, student.ID).CompletedCoursesCount; got != before+1 {
		t.Fatalf("completedCoursesCount: want=%d got=%d", before+1, got)
	}

	e, _ = env.enrollmentSvc.RecordProgress(ctx, student.ID, c.ID, 40)
	if e.IsCompleted {
		t.Fatalf("isCompleted should follow progress: got=%+v", e)
	}
}

func TestEnrollmentService_RecordProgressValidatesFirst(t *testing.T) {
	// 没有任何存储依赖，校验失败必须在访问存储之前返回
	s := &EnrollmentService{}
	for _, p := range []int{-1, 101, 1000} {
		if _, err := s.RecordProgress(context.Background(), "u", "c", p); !errors.Is(err, util.ErrInvalidProgressValue) {
			t.Fatalf("progress %d: want=%v got=%v", p, util.ErrInvalidProgressValue, err)
		}
	}
}

func TestEnrollmentService_RecordProgressWithoutEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c, _ := env.course(t, teacher, 1)

	if _, err := env.enrollmentSvc.RecordProgress(ctx, student.ID, c.ID, 10); !errors.Is(err, util.ErrEnrollmentNotFound) {
		t.Fatalf("want=%v got=%v", util.ErrEnrollmentNotFound, err)
	}
	if _, err := env.enrollmentSvc.RecordProgress(ctx, student.ID, "ghost", 10); !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("want=%v got=%v", util.ErrCourseNotFound, err)
	}
}

func TestEnrollmentService_ListEnrolledCourses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c1, _ := env.course(t, teacher, 1)
	c2, _ := env.course(t, teacher, 1)
	env.enrollmentSvc.Enroll(ctx, student.ID, c1.ID)
	env.enrollmentSvc.Enroll(ctx, student.ID, c2.ID)
	env.enrollmentSvc.RecordProgress(ctx, student.ID, c2.ID, 100)

	got, err := env.enrollmentSvc.ListEnrolledCourses(ctx, student.ID)
	if err != nil {
		t.Fatalf("ListEnrolledCourses: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("courses: want=2 got=%d", len(got))
	}
	for _, ec := range got {
		if ec.ID == c2.ID && !ec.IsCompleted {
			t.Fatalf("course %s should be completed", c2.ID)
		}
	}
}

func TestEnrollmentService_Reconcile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c, lessons := env.course(t, teacher, 2)
	env.enrollmentSvc.Enroll(ctx, student.ID, c.ID)

	// 直接修改完成集合，模拟缓存进度落后
	env.lessons.AddCompletion(ctx, lessons[0].ID, student.ID)
	env.lessons.AddCompletion(ctx, lessons[1].ID, student.ID)

	reconciler := NewProgressReconciler(env.courses, env.enrollmentSvc)
	fixed, err := reconciler.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if fixed != 1 {
		t.Fatalf("fixed: want=1 got=%d", fixed)
	}
	e, _ := env.enrollmentSvc.GetEnrollment(ctx, student.ID, c.ID)
	if e.Progress != 100 || !e.IsCompleted {
		t.Fatalf("enrollment after reconcile: got=%+v", e)
	}
	if got := env.reload(t, student.ID).CompletedCoursesCount; got != 1 {
		t.Fatalf("completedCoursesCount: want=1 got=%d", got)
	}

	fixed, _ = reconciler.RunOnce(ctx)
	if fixed != 0 {
		t.Fatalf("second run fixed: want=0 got=%d", fixed)
	}
}

// staleCourseStore 在列表中多返回一门已删除的课程
type staleCourseStore struct {
	CourseStore
	stale model.Course
}

func (s staleCourseStore) List(ctx context.Context) ([]model.Course, error) {
	courses, err := s.CourseStore.List(ctx)
	return append([]model.Course{s.stale}, courses...), err
}

func TestProgressReconciler_SkipsDeletedCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c, lessons := env.course(t, teacher, 1)
	gone, _ := env.course(t, teacher, 0)
	env.enrollmentSvc.Enroll(ctx, student.ID, c.ID)
	env.enrollmentSvc.Enroll(ctx, student.ID, gone.ID)
	env.enrollments.SetProgress(ctx, student.ID, gone.ID, 50, time.Now())
	env.lessons.AddCompletion(ctx, lessons[0].ID, student.ID)

	// 课程已删除但选课记录残留，模拟列表之后发生的删除
	if err := env.db.Delete(&model.Course{}, "id = ?", gone.ID).Error; err != nil {
		t.Fatalf("delete course row: %v", err)
	}

	reconciler := NewProgressReconciler(staleCourseStore{CourseStore: env.courses, stale: *gone}, env.enrollmentSvc)
	fixed, err := reconciler.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if fixed != 1 {
		t.Fatalf("fixed: want=1 got=%d", fixed)
	}
	e, _ := env.enrollmentSvc.GetEnrollment(ctx, student.ID, c.ID)
	if e.Progress != 100 {
		t.Fatalf("enrollment after reconcile: got=%+v", e)
	}
}

func TestEnrollmentService_ConcurrentCompletionCountsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c, _ := env.course(t, teacher, 1)
	if _, err := env.enrollmentSvc.Enroll(ctx, student.ID, c.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	before := env.reload(t, student.ID).CompletedCoursesCount

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.enrollmentSvc.RecordProgress(ctx, student.ID, c.ID, 100); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("RecordProgress: %v", err)
	}

	if got := env.reload(t, student.ID).CompletedCoursesCount; got != before+1 {
		t.Fatalf("completedCoursesCount: want=%d got=%d", before+1, got)
	}
}
