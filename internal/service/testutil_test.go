package service

import (
	"context"
	"elearn_backend/internal/config"
	"elearn_backend/internal/model"
	"elearn_backend/internal/repository"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db          *gorm.DB
	users       *repository.UserRepository
	courses     *repository.CourseRepository
	lessons     *repository.LessonRepository
	enrollments *repository.EnrollmentRepository
	forum       *repository.ForumRepository

	enrollmentSvc *EnrollmentService
	lessonSvc     *LessonService
	courseSvc     *CourseService
	dashboardSvc  *DashboardService
	forumSvc      *ForumService
	authSvc       *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&model.User{}, &model.Course{}, &model.Lesson{}, &model.Enrollment{}, &model.ForumPost{}, &model.PostReply{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{
		db:          db,
		users:       repository.NewUserRepository(db),
		courses:     repository.NewCourseRepository(db),
		lessons:     repository.NewLessonRepository(db),
		enrollments: repository.NewEnrollmentRepository(db),
		forum:       repository.NewForumRepository(db),
	}
	env.enrollmentSvc = NewEnrollmentService(env.users, env.courses, env.lessons, env.enrollments)
	env.lessonSvc = NewLessonService(env.courses, env.lessons, env.users, env.enrollmentSvc)
	env.courseSvc = NewCourseService(env.courses, env.lessons, &LocalStorageProvider{Root: t.TempDir()})
	env.dashboardSvc = NewDashboardService(env.users, env.courses, env.lessons, 5)
	env.forumSvc = NewForumService(env.forum, env.users, env.courses, env.lessons)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}
	env.authSvc = NewAuthService(env.users, cfg)
	return env
}

func (e *testEnv) user(t *testing.T, name string, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: role}
	if err := e.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) course(t *testing.T, owner *model.User, lessons int) (*model.Course, []model.Lesson) {
	t.Helper()
	ctx := context.Background()
	c, err := e.courseSvc.Create(ctx, Actor{UserID: owner.ID, Role: owner.Role}, CourseInput{Title: "Course of " + owner.Name})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	out := make([]model.Lesson, 0, lessons)
	for i := 0; i < lessons; i++ {
		l, err := e.lessonSvc.Create(ctx, Actor{UserID: owner.ID, Role: owner.Role}, c.ID, LessonInput{
			Title: fmt.Sprintf("Lesson %d", i+1),
			Order: (i + 1) * 10,
		})
		if err != nil {
			t.Fatalf("create lesson: %v", err)
		}
		out = append(out, *l)
	}
	return c, out
}

func (e *testEnv) reload(t *testing.T, id string) *model.User {
	t.Helper()
	u, err := e.users.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}
