package controller

import (
	"elearn_backend/internal/service"
	"elearn_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TranslationController struct {
	TranslationService *service.TranslationService
}

func NewTranslationController(translationService *service.TranslationService) *TranslationController {
	return &TranslationController{TranslationService: translationService}
}

type TranslateRequest struct {
	Text string `json:"text"`
}

// Translate godoc
// @Summary 翻译文本
// @Tags 翻译
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body TranslateRequest true "原文"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "文本为空"
// @Failure 502 {object} util.Response "翻译服务异常"
// @Router /api/translate [post]
func (c *TranslationController) Translate(ctx *gin.Context) {
	var req TranslateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	translated, err := c.TranslationService.Translate(ctx.Request.Context(), req.Text)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"translatedText": translated})
}
