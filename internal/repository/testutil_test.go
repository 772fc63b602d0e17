package repository

import (
	"context"
	"elearn_backend/internal/model"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&model.User{}, &model.Course{}, &model.Lesson{}, &model.Enrollment{}, &model.ForumPost{}, &model.PostReply{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string, role model.UserRole, createdAt time.Time) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: role}
	u.CreatedAt = createdAt
	if err := NewUserRepository(db).Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedCourse(t *testing.T, db *gorm.DB, title, owner string, createdAt time.Time) *model.Course {
	t.Helper()
	c := &model.Course{Title: title, CreatedBy: owner}
	c.CreatedAt = createdAt
	if err := NewCourseRepository(db).Create(context.Background(), c); err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return c
}

func seedLesson(t *testing.T, db *gorm.DB, courseID string, order int) *model.Lesson {
	t.Helper()
	l := &model.Lesson{CourseID: courseID, Title: fmt.Sprintf("lesson %d", order), Order: order}
	if err := NewLessonRepository(db).Create(context.Background(), l); err != nil {
		t.Fatalf("seed lesson: %v", err)
	}
	return l
}
