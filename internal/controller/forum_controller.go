package controller

import (
	"elearn_backend/internal/repository"
	"elearn_backend/internal/service"
	"elearn_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ForumController struct {
	ForumService *service.ForumService
}

func NewForumController(forumService *service.ForumService) *ForumController {
	return &ForumController{ForumService: forumService}
}

// ListPosts godoc
// @Summary 论坛帖子列表
// @Description 可按课程、课时或作者筛选，最新的在前
// @Tags 论坛
// @Produce  json
// @Param   courseId query string false "课程ID"
// @Param   lessonId query string false "课时ID"
// @Param   authorId query string false "作者ID"
// @Success 200 {object} util.Response{data=[]model.ForumPost}
// @Router /api/forum/posts [get]
func (c *ForumController) ListPosts(ctx *gin.Context) {
	posts, err := c.ForumService.ListPosts(ctx.Request.Context(), repository.PostFilter{
		CourseID: ctx.Query("courseId"),
		LessonID: ctx.Query("lessonId"),
		AuthorID: ctx.Query("authorId"),
	})
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, posts)
}

// MostActive godoc
// @Summary 最活跃的帖子
// @Tags 论坛
// @Produce  json
// @Param   limit query int false "数量" default(10)
// @Success 200 {object} util.Response{data=[]model.ForumPost}
// @Router /api/forum/active [get]
func (c *ForumController) MostActive(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	posts, err := c.ForumService.MostActive(ctx.Request.Context(), limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, posts)
}

// ListEnrolledPosts godoc
// @Summary 我已选课程下的帖子
// @Tags 论坛
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.ForumPost}
// @Router /api/forum/enrolled [get]
func (c *ForumController) ListEnrolledPosts(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	posts, err := c.ForumService.ListEnrolledCoursePosts(ctx.Request.Context(), actor.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, posts)
}

// GetPost godoc
// @Summary 帖子详情
// @Tags 论坛
// @Produce  json
// @Param   id path string true "帖子ID"
// @Success 200 {object} util.Response{data=service.PostWithReplies}
// @Failure 404 {object} util.Response "帖子不存在"
// @Router /api/forum/posts/{id} [get]
func (c *ForumController) GetPost(ctx *gin.Context) {
	post, err := c.ForumService.GetPost(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, post)
}

// CreatePost godoc
// @Summary 发帖
// @Tags 论坛
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.PostInput true "帖子内容"
// @Success 201 {object} util.Response{data=model.ForumPost}
// @Router /api/forum/posts [post]
func (c *ForumController) CreatePost(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.PostInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	post, err := c.ForumService.CreatePost(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, post)
}

type ReplyRequest struct {
	Content string `json:"content" binding:"required"`
}

// Reply godoc
// @Summary 回复帖子
// @Description 仅教师和管理员可以回复
// @Tags 论坛
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "帖子ID"
// @Param   body body ReplyRequest true "回复内容"
// @Success 201 {object} util.Response{data=model.PostReply}
// @Failure 403 {object} util.Response "无权限"
// @Router /api/forum/posts/{id}/replies [post]
func (c *ForumController) Reply(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req ReplyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	reply, err := c.ForumService.Reply(ctx.Request.Context(), actor, ctx.Param("id"), req.Content)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, reply)
}
