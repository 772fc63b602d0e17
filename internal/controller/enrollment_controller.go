package controller

import (
	"elearn_backend/internal/service"
	"elearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
	Hub               *service.ProgressHub
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService, hub *service.ProgressHub) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService, Hub: hub}
}

// Enroll godoc
// @Summary 选课
// @Description 重复选课不会产生新记录
// @Tags 学习
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 404 {object} util.Response "课程或用户不存在"
// @Router /api/courses/{id}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	enrollment, err := c.EnrollmentService.Enroll(ctx.Request.Context(), actor.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}

type ProgressRequest struct {
	Progress *int `json:"progress" binding:"required"`
}

// UpdateProgress godoc
// @Summary 更新课程进度
// @Description 进度取值 0-100，首次达到 100 时计入完成课程数
// @Tags 学习
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   body body ProgressRequest true "进度"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 400 {object} util.Response "进度超出范围"
// @Router /api/courses/{id}/progress [put]
func (c *EnrollmentController) UpdateProgress(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	var req ProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	enrollment, err := c.EnrollmentService.RecordProgress(ctx.Request.Context(), actor.UserID, ctx.Param("id"), *req.Progress)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}

// GetEnrollment godoc
// @Summary 查询选课记录
// @Tags 学习
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 404 {object} util.Response "未选课"
// @Router /api/courses/{id}/enrollment [get]
func (c *EnrollmentController) GetEnrollment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	enrollment, err := c.EnrollmentService.GetEnrollment(ctx.Request.Context(), actor.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}

// ListEnrolled godoc
// @Summary 我的课程
// @Tags 学习
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.EnrolledCourse}
// @Router /api/enrollments [get]
func (c *EnrollmentController) ListEnrolled(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	courses, err := c.EnrollmentService.ListEnrolledCourses(ctx.Request.Context(), actor.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// SubscribeProgress godoc
// @Summary 订阅进度推送
// @Description 建立 WebSocket 连接，接收选课、进度和完课事件
// @Tags 学习
// @Security ApiKeyAuth
// @Param   token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/progress/ws [get]
func (c *EnrollmentController) SubscribeProgress(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	c.Hub.Serve(ctx.Writer, ctx.Request, actor.UserID)
}
