package app

import (
	"bytes"
	"elearn_backend/internal/config"
	"elearn_backend/pkg/database"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		JWT:       config.JWTConfig{Secret: "app-test-secret", ExpireTime: time.Hour},
		Storage:   config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
		Dashboard: config.DashboardConfig{RecentLimit: 5},
	}
	a := &App{Config: cfg, DB: db, stop: make(chan struct{})}
	repos := a.initRepositories(db)
	a.services = a.initServices(repos, cfg, nil)
	ctrls := a.initControllers(a.services, db, nil)

	router := gin.New()
	a.setupMiddlewares(router, cfg)
	a.registerRoutes(router, ctrls, cfg)
	t.Cleanup(func() {
		close(a.stop)
		a.services.sessions.Close()
		sqlDB.Close()
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body interface{}) (int, apiResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, resp
}

func (s *testServer) expect(want int, method, path, token string, body interface{}, out interface{}) {
	s.t.Helper()
	code, resp := s.do(method, path, token, body)
	if code != want {
		s.t.Fatalf("%s %s: want=%d got=%d (%s)", method, path, want, code, resp.Message)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			s.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

func (s *testServer) registerAndLogin(name, role string) string {
	s.t.Helper()
	email := name + "@example.com"
	s.expect(http.StatusCreated, http.MethodPost, "/api/register", "", gin.H{
		"name": name, "email": email, "password": "secret123", "role": role,
	}, nil)
	var login struct {
		Token string `json:"token"`
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/login", "", gin.H{"email": email, "password": "secret123"}, &login)
	if login.Token == "" {
		s.t.Fatalf("login %s: empty token", name)
	}
	return login.Token
}

func TestRegisterAndLoginErrors(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin("alice", "student")

	s.expect(http.StatusConflict, http.MethodPost, "/api/register", "", gin.H{
		"name": "alice", "email": "ALICE@example.com", "password": "secret123",
	}, nil)
	s.expect(http.StatusBadRequest, http.MethodPost, "/api/register", "", gin.H{
		"name": "eve", "email": "eve@example.com", "password": "secret123", "role": "admin",
	}, nil)
	s.expect(http.StatusUnauthorized, http.MethodPost, "/api/login", "", gin.H{
		"email": "alice@example.com", "password": "wrong-password",
	}, nil)
	s.expect(http.StatusUnauthorized, http.MethodGet, "/api/dashboard", "", nil, nil)
}

func TestLearningFlow(t *testing.T) {
	s := newTestServer(t)
	teacher := s.registerAndLogin("tom", "teacher")
	student := s.registerAndLogin("sue", "student")

	var course struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	s.expect(http.StatusCreated, http.MethodPost, "/api/teacher/courses", teacher, gin.H{"title": "Intro to Go"}, &course)
	if course.Slug != "intro-to-go" {
		t.Fatalf("slug: want=intro-to-go got=%s", course.Slug)
	}
	s.expect(http.StatusForbidden, http.MethodPost, "/api/teacher/courses", student, gin.H{"title": "Nope"}, nil)

	var listed struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
		Total int `json:"total"`
		Page  int `json:"page"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/courses?keyword=go&page=1&pageSize=5", "", nil, &listed)
	if listed.Total != 1 || listed.Page != 1 || len(listed.Items) != 1 || listed.Items[0].ID != course.ID {
		t.Fatalf("course list: got=%+v", listed)
	}
	s.expect(http.StatusBadRequest, http.MethodGet, "/api/courses?featured=maybe", "", nil, nil)

	var lesson struct {
		ID      string `json:"id"`
		Content []struct {
			Quiz *struct {
				ID string `json:"id"`
			} `json:"quiz"`
		} `json:"content"`
	}
	s.expect(http.StatusCreated, http.MethodPost, "/api/teacher/courses/"+course.ID+"/lessons", teacher, gin.H{
		"title": "Hello",
		"order": 1,
		"content": []gin.H{
			{"type": "text", "content": "fmt.Println"},
			{"type": "quiz", "quiz": gin.H{"question": "2+2?", "options": []string{"3", "4"}, "correctAnswer": "4"}},
		},
	}, &lesson)
	if len(lesson.Content) != 2 || lesson.Content[1].Quiz == nil || lesson.Content[1].Quiz.ID == "" {
		t.Fatalf("lesson content: want quiz id assigned got=%+v", lesson.Content)
	}
	s.expect(http.StatusBadRequest, http.MethodPost, "/api/teacher/courses/"+course.ID+"/lessons", teacher, gin.H{
		"title": "Duplicate order",
		"order": 1,
	}, nil)
	s.expect(http.StatusBadRequest, http.MethodPost, "/api/teacher/courses/"+course.ID+"/lessons", teacher, gin.H{
		"title":   "Broken",
		"content": []gin.H{{"type": "quiz", "quiz": gin.H{"question": "?", "options": []string{"a"}, "correctAnswer": "b"}}},
	}, nil)

	var quiz struct {
		Correct bool `json:"correct"`
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/lessons/"+lesson.ID+"/quizzes/"+lesson.Content[1].Quiz.ID+"/answer", student, gin.H{"answer": "4"}, &quiz)
	if !quiz.Correct {
		t.Fatalf("quiz answer: want correct")
	}

	type navState struct {
		View     string `json:"view"`
		CourseID string `json:"courseId"`
		LessonID string `json:"lessonId"`
		Step     int    `json:"step"`
	}
	var nav navState
	s.expect(http.StatusOK, http.MethodGet, "/api/navigation", student, nil, &nav)
	if nav.View != "course_list" {
		t.Fatalf("initial view: want=course_list got=%s", nav.View)
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/navigation/courses/"+course.ID, student, nil, &nav)
	s.expect(http.StatusOK, http.MethodPost, "/api/navigation/lessons/"+lesson.ID, student, nil, &nav)
	if nav.View != "lesson_view" || nav.LessonID != lesson.ID {
		t.Fatalf("after select lesson: got=%+v", nav)
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/navigation/next", student, nil, &nav)
	if nav.Step != 1 {
		t.Fatalf("step: want=1 got=%d", nav.Step)
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/navigation/next", student, nil, &nav)
	if nav.Step != 1 {
		t.Fatalf("step past last block: want=1 got=%d", nav.Step)
	}
	s.expect(http.StatusOK, http.MethodPost, "/api/navigation/complete", student, nil, &nav)
	if nav.View != "course_detail" || nav.CourseID != course.ID {
		t.Fatalf("after complete: got=%+v", nav)
	}

	var enrollment struct {
		Progress    int  `json:"progress"`
		IsCompleted bool `json:"isCompleted"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/courses/"+course.ID+"/enrollment", student, nil, &enrollment)
	if enrollment.Progress != 100 || !enrollment.IsCompleted {
		t.Fatalf("enrollment: want=100/true got=%d/%v", enrollment.Progress, enrollment.IsCompleted)
	}
	s.expect(http.StatusBadRequest, http.MethodPut, "/api/courses/"+course.ID+"/progress", student, gin.H{"progress": 150}, nil)

	var profile struct {
		CompletedLessonsCount int      `json:"completedLessonsCount"`
		CompletedCoursesCount int      `json:"completedCoursesCount"`
		EnrolledCourses       []string `json:"enrolledCourses"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/users/me", student, nil, &profile)
	if profile.CompletedLessonsCount != 1 || profile.CompletedCoursesCount != 1 || len(profile.EnrolledCourses) != 1 {
		t.Fatalf("profile counters: got=%+v", profile)
	}

	var dash struct {
		Role      string `json:"role"`
		Dashboard struct {
			CoursesCompleted int `json:"coursesCompleted"`
		} `json:"dashboard"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/dashboard", student, nil, &dash)
	if dash.Role != "student" || dash.Dashboard.CoursesCompleted != 1 {
		t.Fatalf("dashboard: want=student/1 got=%s/%d", dash.Role, dash.Dashboard.CoursesCompleted)
	}

	s.expect(http.StatusOK, http.MethodPost, "/api/logout", student, nil, nil)
	s.expect(http.StatusUnauthorized, http.MethodGet, "/api/navigation", student, nil, nil)
}

func TestForumReplyPermissions(t *testing.T) {
	s := newTestServer(t)
	teacher := s.registerAndLogin("tina", "teacher")
	student := s.registerAndLogin("sam", "student")

	var post struct {
		ID string `json:"id"`
	}
	s.expect(http.StatusCreated, http.MethodPost, "/api/forum/posts", student, gin.H{"title": "Help", "content": "stuck"}, &post)
	s.expect(http.StatusForbidden, http.MethodPost, "/api/forum/posts/"+post.ID+"/replies", student, gin.H{"content": "me too"}, nil)
	s.expect(http.StatusCreated, http.MethodPost, "/api/forum/posts/"+post.ID+"/replies", teacher, gin.H{"content": "try this"}, nil)

	var detail struct {
		Post struct {
			ReplyCount int `json:"replyCount"`
		} `json:"post"`
		Replies []json.RawMessage `json:"replies"`
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/forum/posts/"+post.ID, "", nil, &detail)
	if detail.Post.ReplyCount != 1 || len(detail.Replies) != 1 {
		t.Fatalf("post detail: want=1/1 got=%d/%d", detail.Post.ReplyCount, len(detail.Replies))
	}
	s.expect(http.StatusNotFound, http.MethodGet, "/api/forum/posts/missing", "", nil, nil)
}
