package app

import (
	"elearn_backend/docs"
	"elearn_backend/internal/config"
	"elearn_backend/internal/middleware"
	"elearn_backend/internal/model"
	"elearn_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.HealthCheck)

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:id", c.course.GetCourse)
		public.GET("/courses/:id/lessons", c.lesson.ListLessons)
		public.GET("/lessons/:id", c.lesson.GetLesson)

		public.GET("/forum/posts", c.forum.ListPosts)
		public.GET("/forum/posts/:id", c.forum.GetPost)
		public.GET("/forum/active", c.forum.MostActive)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.POST("/logout", c.auth.Logout)

	group.GET("/users/me", c.user.GetProfile)
	group.PUT("/users/me", c.user.UpdateProfile)
	group.GET("/users/me/replies", c.user.GetMyReplies)

	group.GET("/dashboard", c.dashboard.GetDashboard)

	group.GET("/enrollments", c.enrollment.ListEnrolled)
	group.GET("/progress/ws", c.enrollment.SubscribeProgress)
	group.POST("/courses/:id/enroll", c.enrollment.Enroll)
	group.PUT("/courses/:id/progress", c.enrollment.UpdateProgress)
	group.GET("/courses/:id/enrollment", c.enrollment.GetEnrollment)

	group.POST("/courses/:id/lessons/:lessonId/complete", c.lesson.CompleteLesson)
	group.DELETE("/courses/:id/lessons/:lessonId/complete", c.lesson.UncompleteLesson)
	group.POST("/lessons/:id/quizzes/:quizId/answer", c.lesson.SubmitQuizAnswer)

	nav := group.Group("/navigation")
	{
		nav.GET("", c.navigation.GetState)
		nav.POST("/courses/:courseId", c.navigation.SelectCourse)
		nav.POST("/lessons/:lessonId", c.navigation.SelectLesson)
		nav.POST("/back", c.navigation.Back)
		nav.POST("/next", c.navigation.Next)
		nav.POST("/prev", c.navigation.Prev)
		nav.POST("/complete", c.navigation.Complete)
	}

	group.GET("/forum/enrolled", c.forum.ListEnrolledPosts)
	group.POST("/forum/posts", c.forum.CreatePost)

	group.POST("/translate", c.translation.Translate)
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.GET("/courses", c.course.ListMyCourses)
		teacher.POST("/courses", c.course.CreateCourse)
		teacher.PUT("/courses/:id", c.course.UpdateCourse)
		teacher.DELETE("/courses/:id", c.course.DeleteCourse)
		teacher.POST("/courses/:id/image", c.course.UploadImage)
		teacher.POST("/courses/:id/lessons", c.lesson.CreateLesson)
		teacher.PUT("/lessons/:id", c.lesson.UpdateLesson)
		teacher.DELETE("/lessons/:id", c.lesson.DeleteLesson)
	}

	// 回复权限由 ForumService 校验
	group.POST("/forum/posts/:id/replies", c.forum.Reply)
}

func (a *App) registerAdminRoutes(group *gin.RouterGroup, c *controllers) {
	admin := group.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.ListUsers)
	}
}
