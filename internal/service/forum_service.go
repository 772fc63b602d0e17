package service

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/repository"
	"elearn_backend/internal/util"
	"strings"
)

type PostInput struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	CourseID string `json:"courseId"`
	LessonID string `json:"lessonId"`
}

type PostWithReplies struct {
	Post    *model.ForumPost  `json:"post"`
	Replies []model.PostReply `json:"replies"`
}

// UserReplies 用户的回复及其所属帖子（以帖子 ID 为键）
type UserReplies struct {
	Replies []model.PostReply          `json:"replies"`
	Posts   map[string]model.ForumPost `json:"posts"`
}

type ForumService struct {
	ForumRepo  ForumStore
	UserRepo   UserStore
	CourseRepo CourseStore
	LessonRepo LessonStore
}

func NewForumService(forumRepo ForumStore, userRepo UserStore, courseRepo CourseStore, lessonRepo LessonStore) *ForumService {
	return &ForumService{
		ForumRepo:  forumRepo,
		UserRepo:   userRepo,
		CourseRepo: courseRepo,
		LessonRepo: lessonRepo,
	}
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func (s *ForumService) CreatePost(ctx context.Context, actor Actor, in PostInput) (*model.ForumPost, error) {
	author, err := s.UserRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	post := &model.ForumPost{
		Title:      strings.TrimSpace(in.Title),
		Content:    in.Content,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CourseID:   optional(in.CourseID),
		LessonID:   optional(in.LessonID),
	}
	if post.CourseID != nil {
		if _, err := s.CourseRepo.FindByID(ctx, *post.CourseID); err != nil {
			return nil, err
		}
	}
	if post.LessonID != nil {
		lesson, err := s.LessonRepo.FindByID(ctx, *post.LessonID)
		if err != nil {
			return nil, err
		}
		// 只给了课时时补全所属课程
		if post.CourseID == nil {
			post.CourseID = &lesson.CourseID
		} else if *post.CourseID != lesson.CourseID {
			return nil, util.ErrLessonNotFound
		}
	}
	if err := s.ForumRepo.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *ForumService) ListPosts(ctx context.Context, filter repository.PostFilter) ([]model.ForumPost, error) {
	return s.ForumRepo.ListPosts(ctx, filter)
}

// ListEnrolledCoursePosts 用户已选课程下的帖子
func (s *ForumService) ListEnrolledCoursePosts(ctx context.Context, userID string) ([]model.ForumPost, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := append([]string{}, user.EnrolledCourses...)
	return s.ForumRepo.ListPosts(ctx, repository.PostFilter{CourseIDs: ids})
}

func (s *ForumService) MostActive(ctx context.Context, limit int) ([]model.ForumPost, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.ForumRepo.MostActive(ctx, limit)
}

func (s *ForumService) GetPost(ctx context.Context, id string) (*PostWithReplies, error) {
	post, err := s.ForumRepo.FindPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	replies, err := s.ForumRepo.FindReplies(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PostWithReplies{Post: post, Replies: replies}, nil
}

// CanReply 只有教师和管理员可以回复
func (s *ForumService) CanReply(actor Actor) bool {
	return actor.Role.CanAuthor()
}

func (s *ForumService) Reply(ctx context.Context, actor Actor, postID, content string) (*model.PostReply, error) {
	if !s.CanReply(actor) {
		return nil, util.ErrPermissionDenied
	}
	author, err := s.UserRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	reply := &model.PostReply{
		PostID:     postID,
		Content:    content,
		AuthorID:   author.ID,
		AuthorName: author.Name,
	}
	if err := s.ForumRepo.CreateReply(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *ForumService) UserReplies(ctx context.Context, userID string) (*UserReplies, error) {
	replies, err := s.ForumRepo.FindRepliesByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(replies))
	ids := make([]string, 0, len(replies))
	for _, r := range replies {
		if _, ok := seen[r.PostID]; ok {
			continue
		}
		seen[r.PostID] = struct{}{}
		ids = append(ids, r.PostID)
	}
	posts, err := s.ForumRepo.FindPostsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.ForumPost, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	return &UserReplies{Replies: replies, Posts: byID}, nil
}
