package service

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/repository"
	"elearn_backend/internal/util"
	"errors"
	"testing"
)

func TestForumService_PostAndReply(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := env.user(t, "teacher", model.Teacher)
	student := env.user(t, "student", model.Student)
	c, lessons := env.course(t, teacher, 1)
	studentActor := Actor{UserID: student.ID, Role: student.Role}
	teacherActor := Actor{UserID: teacher.ID, Role: teacher.Role}

	post, err := env.forumSvc.CreatePost(ctx, studentActor, PostInput{Title: "Help", Content: "stuck", LessonID: lessons[0].ID})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.CourseID == nil || *post.CourseID != c.ID || post.AuthorName != "student" {
		t.Fatalf("post: got=%+v", post)
	}

	if _, err := env.forumSvc.Reply(ctx, studentActor, post.ID, "me too"); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("student reply: want=%v got=%v", util.ErrPermissionDenied, err)
	}
	if _, err := env.forumSvc.Reply(ctx, teacherActor, post.ID, "see lesson 1"); err != nil {
		t.Fatalf("teacher reply: %v", err)
	}

	got, err := env.forumSvc.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.Post.ReplyCount != 1 || len(got.Replies) != 1 {
		t.Fatalf("post with replies: got=%+v", got)
	}

	mine, err := env.forumSvc.UserReplies(ctx, teacher.ID)
	if err != nil {
		t.Fatalf("UserReplies: %v", err)
	}
	if len(mine.Replies) != 1 || mine.Posts[post.ID].Title != "Help" {
		t.Fatalf("user replies: got=%+v", mine)
	}

	byLesson, _ := env.forumSvc.ListPosts(ctx, repository.PostFilter{LessonID: lessons[0].ID})
	if len(byLesson) != 1 {
		t.Fatalf("by lesson: want=1 got=%d", len(byLesson))
	}
	enrolled, _ := env.forumSvc.ListEnrolledCoursePosts(ctx, student.ID)
	if len(enrolled) != 0 {
		t.Fatalf("enrolled posts before enrolling: want=0 got=%d", len(enrolled))
	}
}

func TestForumService_PostForMissingCourse(t *testing.T) {
	env := newTestEnv(t)
	student := env.user(t, "student", model.Student)
	_, err := env.forumSvc.CreatePost(context.Background(), Actor{UserID: student.ID, Role: student.Role}, PostInput{Title: "x", Content: "y", CourseID: "ghost"})
	if !errors.Is(err, util.ErrCourseNotFound) {
		t.Fatalf("want=%v got=%v", util.ErrCourseNotFound, err)
	}
}
