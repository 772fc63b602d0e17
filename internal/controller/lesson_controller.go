package controller

import (
	"elearn_backend/internal/service"
	"elearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

// ListLessons godoc
// @Summary 课程下的课时
// @Tags 课时
// @Produce  json
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Lesson}
// @Router /api/courses/{id}/lessons [get]
func (c *LessonController) ListLessons(ctx *gin.Context) {
	lessons, err := c.LessonService.ListByCourse(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// GetLesson godoc
// @Summary 课时详情
// @Tags 课时
// @Produce  json
// @Param   id path string true "课时ID"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/lessons/{id} [get]
func (c *LessonController) GetLesson(ctx *gin.Context) {
	lesson, err := c.LessonService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// CreateLesson godoc
// @Summary 创建课时
// @Tags 课时
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   body body service.LessonInput true "课时信息"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Failure 400 {object} util.Response "内容块不合法"
// @Router /api/teacher/courses/{id}/lessons [post]
func (c *LessonController) CreateLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.LessonInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	lesson, err := c.LessonService.Create(ctx.Request.Context(), actor, ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 修改课时
// @Tags 课时
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课时ID"
// @Param   body body service.LessonInput true "课时信息"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/teacher/lessons/{id} [put]
func (c *LessonController) UpdateLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req service.LessonInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	lesson, err := c.LessonService.Update(ctx.Request.Context(), actor, ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除课时
// @Tags 课时
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/lessons/{id} [delete]
func (c *LessonController) DeleteLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	if err := c.LessonService.Delete(ctx.Request.Context(), actor, ctx.Param("id")); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// CompleteLesson godoc
// @Summary 标记课时完成
// @Description 未选课时自动选课，返回重算后的选课记录
// @Tags 学习
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   lessonId path string true "课时ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Router /api/courses/{id}/lessons/{lessonId}/complete [post]
func (c *LessonController) CompleteLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	enrollment, err := c.LessonService.CompleteLesson(ctx.Request.Context(), actor.UserID, ctx.Param("id"), ctx.Param("lessonId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}

// UncompleteLesson godoc
// @Summary 撤销课时完成
// @Tags 学习
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   lessonId path string true "课时ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Router /api/courses/{id}/lessons/{lessonId}/complete [delete]
func (c *LessonController) UncompleteLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	enrollment, err := c.LessonService.UncompleteLesson(ctx.Request.Context(), actor.UserID, ctx.Param("id"), ctx.Param("lessonId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}

type QuizAnswerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// SubmitQuizAnswer godoc
// @Summary 提交测验答案
// @Description 只返回是否正确，不会标记课时完成
// @Tags 学习
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课时ID"
// @Param   quizId path string true "测验ID"
// @Param   body body QuizAnswerRequest true "答案"
// @Success 200 {object} util.Response{data=service.QuizResult}
// @Router /api/lessons/{id}/quizzes/{quizId}/answer [post]
func (c *LessonController) SubmitQuizAnswer(ctx *gin.Context) {
	var req QuizAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	result, err := c.LessonService.SubmitQuizAnswer(ctx.Request.Context(), ctx.Param("id"), ctx.Param("quizId"), req.Answer)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
