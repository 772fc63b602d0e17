package service

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"errors"
	"testing"
)

func TestLessonService_CompleteHalfOfFourLessons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c, lessons := env.course(t, teacher, 4)

	var e *model.Enrollment
	var err error
	for _, l := range lessons[:2] {
		e, err = env.lessonSvc.CompleteLesson(ctx, student.ID, c.ID, l.ID)
		if err != nil {
			t.Fatalf("CompleteLesson: %v", err)
		}
	}
	if e.Progress != 50 || e.IsCompleted {
		t.Fatalf("enrollment: want progress=50 got=%+v", e)
	}

	// 重复完成不重复计数
	if _, err := env.lessonSvc.CompleteLesson(ctx, student.ID, c.ID, lessons[0].ID); err != nil {
		t.Fatalf("repeat CompleteLesson: %v", err)
	}
	u := env.reload(t, student.ID)
	if u.CompletedLessonsCount != 2 {
		t.Fatalf("completedLessonsCount: want=2 got=%d", u.CompletedLessonsCount)
	}
	if !u.IsEnrolled(c.ID) {
		t.Fatalf("completing a lesson should enroll the user")
	}
}

func TestLessonService_CompleteAllCountsCourseOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c, lessons := env.course(t, teacher, 2)

	for _, l := range lessons {
		if _, err := env.lessonSvc.CompleteLesson(ctx, student.ID, c.ID, l.ID); err != nil {
			t.Fatalf("CompleteLesson: %v", err)
		}
	}
	e, err := env.lessonSvc.UncompleteLesson(ctx, student.ID, c.ID, lessons[1].ID)
	if err != nil {
		t.Fatalf("UncompleteLesson: %v", err)
	}
	if e.Progress != 50 || e.IsCompleted {
		t.Fatalf("after uncomplete: got=%+v", e)
	}
	if _, err := env.lessonSvc.CompleteLesson(ctx, student.ID, c.ID, lessons[1].ID); err != nil {
		t.Fatalf("CompleteLesson again: %v", err)
	}

	u := env.reload(t, student.ID)
	if u.CompletedCoursesCount != 1 {
		t.Fatalf("completedCoursesCount: want=1 got=%d", u.CompletedCoursesCount)
	}
	if u.CompletedLessonsCount != 2 {
		t.Fatalf("completedLessonsCount: want=2 got=%d", u.CompletedLessonsCount)
	}
}

func TestLessonService_CompleteLessonFromOtherCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c1, _ := env.course(t, teacher, 1)
	_, other := env.course(t, teacher, 1)

	if _, err := env.lessonSvc.CompleteLesson(ctx, student.ID, c1.ID, other[0].ID); !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("want=%v got=%v", util.ErrLessonNotFound, err)
	}
}

func quizLesson() LessonInput {
	return LessonInput{
		Title: "Quiz",
		Content: []model.ContentBlock{
			{Type: model.ContentText, Content: "read this"},
			{Type: model.ContentQuiz, Quiz: &model.Quiz{ID: "q1", Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4"}},
		},
	}
}

func TestLessonService_QuizAnswerDoesNotComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c, _ := env.course(t, teacher, 0)
	l, err := env.lessonSvc.Create(ctx, Actor{UserID: teacher.ID, Role: teacher.Role}, c.ID, quizLesson())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := env.lessonSvc.SubmitQuizAnswer(ctx, l.ID, "q1", "4")
	if err != nil || !res.Correct {
		t.Fatalf("correct answer: res=%+v err=%v", res, err)
	}
	res, _ = env.lessonSvc.SubmitQuizAnswer(ctx, l.ID, "q1", "3")
	if res.Correct {
		t.Fatalf("wrong answer marked correct")
	}
	if _, err := env.lessonSvc.SubmitQuizAnswer(ctx, l.ID, "nope", "4"); !errors.Is(err, util.ErrQuizNotFound) {
		t.Fatalf("missing quiz: want=%v got=%v", util.ErrQuizNotFound, err)
	}

	got, _ := env.lessons.FindByID(ctx, l.ID)
	if got.IsCompletedBy(student.ID) {
		t.Fatalf("quiz answer must not complete the lesson")
	}
}

func TestLessonService_RejectsInvalidContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	c, _ := env.course(t, teacher, 0)
	actor := Actor{UserID: teacher.ID, Role: teacher.Role}

	tests := []struct {
		name  string
		block model.ContentBlock
	}{
		{"quiz without quiz", model.ContentBlock{Type: model.ContentQuiz}},
		{"no options", model.ContentBlock{Type: model.ContentQuiz, Quiz: &model.Quiz{Question: "q", CorrectAnswer: "a"}}},
		{"answer not an option", model.ContentBlock{Type: model.ContentQuiz, Quiz: &model.Quiz{Question: "q", Options: []string{"a"}, CorrectAnswer: "b"}}},
		{"unknown type", model.ContentBlock{Type: "audio"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.lessonSvc.Create(ctx, actor, c.ID, LessonInput{Title: "x", Content: []model.ContentBlock{tt.block}})
			if !errors.Is(err, util.ErrInvalidContentBlock) {
				t.Fatalf("want=%v got=%v", util.ErrInvalidContentBlock, err)
			}
		})
	}
}

func TestLessonService_OnlyOwnerOrAdminEdits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner", model.Teacher)
	other := env.user(t, "other", model.Teacher)
	admin := env.user(t, "admin", model.Admin)
	student := env.user(t, "student", model.Student)
	c, lessons := env.course(t, owner, 1)

	in := LessonInput{Title: "renamed"}
	for _, actor := range []*model.User{other, student} {
		if _, err := env.lessonSvc.Update(ctx, Actor{UserID: actor.ID, Role: actor.Role}, lessons[0].ID, in); !errors.Is(err, util.ErrPermissionDenied) {
			t.Fatalf("%s: want=%v got=%v", actor.Name, util.ErrPermissionDenied, err)
		}
	}
	l, err := env.lessonSvc.Update(ctx, Actor{UserID: admin.ID, Role: admin.Role}, lessons[0].ID, in)
	if err != nil || l.Title != "renamed" {
		t.Fatalf("admin update: l=%+v err=%v", l, err)
	}
	if err := env.lessonSvc.Delete(ctx, Actor{UserID: owner.ID, Role: owner.Role}, lessons[0].ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	left, _ := env.lessonSvc.ListByCourse(ctx, c.ID)
	if len(left) != 0 {
		t.Fatalf("lessons left: want=0 got=%d", len(left))
	}
}

func TestLessonService_OrderUniqueWithinCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	actor := Actor{UserID: teacher.ID, Role: teacher.Role}
	c, lessons := env.course(t, teacher, 2)
	other, _ := env.course(t, teacher, 0)

	if _, err := env.lessonSvc.Create(ctx, actor, c.ID, LessonInput{Title: "dup", Order: lessons[0].Order}); !errors.Is(err, util.ErrDuplicateLessonOrder) {
		t.Fatalf("create duplicate: want=%v got=%v", util.ErrDuplicateLessonOrder, err)
	}
	if _, err := env.lessonSvc.Update(ctx, actor, lessons[1].ID, LessonInput{Title: "moved", Order: lessons[0].Order}); !errors.Is(err, util.ErrDuplicateLessonOrder) {
		t.Fatalf("update to taken order: want=%v got=%v", util.ErrDuplicateLessonOrder, err)
	}

	// 保持自身 order 的更新和其他课程中相同的 order 都允许
	if _, err := env.lessonSvc.Update(ctx, actor, lessons[1].ID, LessonInput{Title: "renamed", Order: lessons[1].Order}); err != nil {
		t.Fatalf("update keeping order: %v", err)
	}
	if _, err := env.lessonSvc.Create(ctx, actor, other.ID, LessonInput{Title: "same order", Order: lessons[0].Order}); err != nil {
		t.Fatalf("same order in another course: %v", err)
	}
}

func TestLessonService_LessonChangesReconcileProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	actor := Actor{UserID: teacher.ID, Role: teacher.Role}
	c, lessons := env.course(t, teacher, 1)

	if _, err := env.lessonSvc.CompleteLesson(ctx, student.ID, c.ID, lessons[0].ID); err != nil {
		t.Fatalf("CompleteLesson: %v", err)
	}

	added, err := env.lessonSvc.Create(ctx, actor, c.ID, LessonInput{Title: "Lesson 2", Order: 20})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	e, err := env.enrollmentSvc.GetEnrollment(ctx, student.ID, c.ID)
	if err != nil || e.Progress != 50 || e.IsCompleted {
		t.Fatalf("after adding lesson: want progress=50 e=%+v err=%v", e, err)
	}

	if err := env.lessonSvc.Delete(ctx, actor, added.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	e, err = env.enrollmentSvc.GetEnrollment(ctx, student.ID, c.ID)
	if err != nil || e.Progress != 100 || !e.IsCompleted {
		t.Fatalf("after deleting lesson: want progress=100 e=%+v err=%v", e, err)
	}
	if u := env.reload(t, student.ID); u.CompletedCoursesCount != 1 {
		t.Fatalf("completedCoursesCount: want=1 got=%d", u.CompletedCoursesCount)
	}
}
