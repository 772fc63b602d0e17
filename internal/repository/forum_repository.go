package repository

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// PostFilter 论坛帖子筛选条件，空字段不参与过滤
type PostFilter struct {
	CourseID string
	LessonID string
	AuthorID string
	// CourseIDs 非 nil 时只返回这些课程下的帖子
	CourseIDs []string
}

type ForumRepository struct {
	DB *gorm.DB
}

func NewForumRepository(db *gorm.DB) *ForumRepository {
	return &ForumRepository{DB: db}
}

func (r *ForumRepository) CreatePost(ctx context.Context, post *model.ForumPost) error {
	return translate(r.DB.WithContext(ctx).Create(post).Error, "forum_post", nil)
}

func (r *ForumRepository) FindPostByID(ctx context.Context, id string) (*model.ForumPost, error) {
	var post model.ForumPost
	if err := r.DB.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err, "forum_post", util.ErrPostNotFound)
	}
	return &post, nil
}

func (r *ForumRepository) ListPosts(ctx context.Context, filter PostFilter) ([]model.ForumPost, error) {
	query := r.DB.WithContext(ctx).Model(&model.ForumPost{})
	if filter.CourseID != "" {
		query = query.Where("course_id = ?", filter.CourseID)
	}
	if filter.LessonID != "" {
		query = query.Where("lesson_id = ?", filter.LessonID)
	}
	if filter.AuthorID != "" {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.CourseIDs != nil {
		if len(filter.CourseIDs) == 0 {
			return []model.ForumPost{}, nil
		}
		query = query.Where("course_id IN ?", filter.CourseIDs)
	}

	var posts []model.ForumPost
	err := query.Order("created_at DESC").Order("id ASC").Find(&posts).Error
	return posts, translate(err, "forum_post", nil)
}

// MostActive 按回复数降序
func (r *ForumRepository) MostActive(ctx context.Context, limit int) ([]model.ForumPost, error) {
	var posts []model.ForumPost
	err := r.DB.WithContext(ctx).
		Order("reply_count DESC").Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, translate(err, "forum_post", nil)
}

func (r *ForumRepository) FindPostsByIDs(ctx context.Context, ids []string) ([]model.ForumPost, error) {
	if len(ids) == 0 {
		return []model.ForumPost{}, nil
	}
	var posts []model.ForumPost
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error
	return posts, translate(err, "forum_post", nil)
}

// CreateReply 写入回复，并在同一事务中增加帖子回复数、刷新更新时间
func (r *ForumRepository) CreateReply(ctx context.Context, reply *model.PostReply) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.ForumPost
		if err := tx.Select("id").First(&post, "id = ?", reply.PostID).Error; err != nil {
			return err
		}
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		return tx.Model(&model.ForumPost{}).Where("id = ?", reply.PostID).Updates(map[string]interface{}{
			"reply_count": gorm.Expr("reply_count + 1"),
			"updated_at":  time.Now(),
		}).Error
	})
	return translate(err, "forum_post", util.ErrPostNotFound)
}

func (r *ForumRepository) FindReplies(ctx context.Context, postID string) ([]model.PostReply, error) {
	var replies []model.PostReply
	err := r.DB.WithContext(ctx).Where("post_id = ?", postID).Order("created_at ASC").Order("id ASC").Find(&replies).Error
	return replies, translate(err, "post_reply", nil)
}

func (r *ForumRepository) FindRepliesByAuthor(ctx context.Context, authorID string) ([]model.PostReply, error) {
	var replies []model.PostReply
	err := r.DB.WithContext(ctx).Where("author_id = ?", authorID).Order("created_at DESC").Order("id ASC").Find(&replies).Error
	return replies, translate(err, "post_reply", nil)
}
