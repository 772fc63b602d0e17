package controller

import (
	"elearn_backend/internal/service"
	"elearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NavigationController struct {
	NavigationService *service.NavigationService
}

func NewNavigationController(navigationService *service.NavigationService) *NavigationController {
	return &NavigationController{NavigationService: navigationService}
}

func (c *NavigationController) respond(ctx *gin.Context, state service.NavState, err error) {
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// GetState godoc
// @Summary 当前导航状态
// @Tags 导航
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.NavState}
// @Failure 401 {object} util.Response "会话不存在"
// @Router /api/navigation [get]
func (c *NavigationController) GetState(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	state, err := c.NavigationService.State(ctx.Request.Context(), actor.UserID)
	c.respond(ctx, state, err)
}

// SelectCourse godoc
// @Summary 进入课程详情
// @Description 课程不存在时回到课程列表
// @Tags 导航
// @Produce  json
// @Security ApiKeyAuth
// @Param   courseId path string true "课程ID"
// @Success 200 {object} util.Response{data=service.NavState}
// @Failure 400 {object} util.Response "非法状态转移"
// @Router /api/navigation/courses/{courseId} [post]
func (c *NavigationController) SelectCourse(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	state, err := c.NavigationService.SelectCourse(ctx.Request.Context(), actor.UserID, ctx.Param("courseId"))
	c.respond(ctx, state, err)
}

// SelectLesson godoc
// @Summary 进入课时
// @Description 课时不存在时回到课程详情
// @Tags 导航
// @Produce  json
// @Security ApiKeyAuth
// @Param   lessonId path string true "课时ID"
// @Success 200 {object} util.Response{data=service.NavState}
// @Router /api/navigation/lessons/{lessonId} [post]
func (c *NavigationController) SelectLesson(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	state, err := c.NavigationService.SelectLesson(ctx.Request.Context(), actor.UserID, ctx.Param("lessonId"))
	c.respond(ctx, state, err)
}

// Back godoc
// @Summary 返回上一级
// @Tags 导航
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.NavState}
// @Router /api/navigation/back [post]
func (c *NavigationController) Back(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	state, err := c.NavigationService.Back(ctx.Request.Context(), actor.UserID)
	c.respond(ctx, state, err)
}

// Next godoc
// @Summary 下一个内容块
// @Tags 导航
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.NavState}
// @Router /api/navigation/next [post]
func (c *NavigationController) Next(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	state, err := c.NavigationService.Step(ctx.Request.Context(), actor.UserID, true)
	c.respond(ctx, state, err)
}

// Prev godoc
// @Summary 上一个内容块
// @Tags 导航
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.NavState}
// @Router /api/navigation/prev [post]
func (c *NavigationController) Prev(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	state, err := c.NavigationService.Step(ctx.Request.Context(), actor.UserID, false)
	c.respond(ctx, state, err)
}

// Complete godoc
// @Summary 完成当前课时
// @Description 标记课时完成并回到课程详情
// @Tags 导航
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.NavState}
// @Router /api/navigation/complete [post]
func (c *NavigationController) Complete(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	state, err := c.NavigationService.Complete(ctx.Request.Context(), actor.UserID)
	c.respond(ctx, state, err)
}
