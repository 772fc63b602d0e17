package service

import (
	"context"
	"elearn_backend/internal/model"
	"elearn_backend/internal/util"
	"fmt"
	"sort"
)

// Dashboard 按角色区分的仪表盘，具体类型只有下面三种
type Dashboard interface {
	Role() model.UserRole
}

// CourseWithLessons 课程、课时以及当前用户的进度
type CourseWithLessons struct {
	model.Course
	Lessons  []model.Lesson `json:"lessons"`
	Progress int            `json:"progress"`
}

type StudentDashboard struct {
	Courses               []CourseWithLessons `json:"courses"`
	CoursesInProgress     int                 `json:"coursesInProgress"`
	CoursesCompleted      int                 `json:"coursesCompleted"`
	TotalLessonsCompleted int                 `json:"totalLessonsCompleted"`
	AverageProgress       int                 `json:"averageProgress"`
}

func (StudentDashboard) Role() model.UserRole { return model.Student }

type TeacherDashboard struct {
	Courses       []CourseWithLessons `json:"courses"`
	TotalCourses  int                 `json:"totalCourses"`
	TotalLessons  int                 `json:"totalLessons"`
	TotalStudents int                 `json:"totalStudents"`
}

func (TeacherDashboard) Role() model.UserRole { return model.Teacher }

type AdminDashboard struct {
	TotalUsers    int            `json:"totalUsers"`
	TotalStudents int            `json:"totalStudents"`
	TotalTeachers int            `json:"totalTeachers"`
	TotalAdmins   int            `json:"totalAdmins"`
	TotalCourses  int            `json:"totalCourses"`
	TotalLessons  int            `json:"totalLessons"`
	RecentUsers   []model.User   `json:"recentUsers"`
	RecentCourses []model.Course `json:"recentCourses"`
}

func (AdminDashboard) Role() model.UserRole { return model.Admin }

// groupLessons 按课程归组，保持课时原有顺序
func groupLessons(courses []model.Course, lessons []model.Lesson) []CourseWithLessons {
	byCourse := make(map[string][]model.Lesson, len(courses))
	for _, l := range lessons {
		byCourse[l.CourseID] = append(byCourse[l.CourseID], l)
	}
	out := make([]CourseWithLessons, 0, len(courses))
	for _, c := range courses {
		ls := byCourse[c.ID]
		if ls == nil {
			ls = []model.Lesson{}
		}
		out = append(out, CourseWithLessons{Course: c, Lessons: ls})
	}
	return out
}

// AggregateStudent 学生视图，课程按进度降序
func AggregateStudent(userID string, courses []model.Course, lessons []model.Lesson) StudentDashboard {
	d := StudentDashboard{Courses: groupLessons(courses, lessons)}
	sum := 0
	for i := range d.Courses {
		c := &d.Courses[i]
		c.Progress = CalculateCourseProgress(userID, c.Lessons)
		sum += c.Progress
		switch {
		case c.Progress == 100:
			d.CoursesCompleted++
		case c.Progress > 0:
			d.CoursesInProgress++
		}
		for j := range c.Lessons {
			if c.Lessons[j].IsCompletedBy(userID) {
				d.TotalLessonsCompleted++
			}
		}
	}
	if n := len(d.Courses); n > 0 {
		d.AverageProgress = (2*sum + n) / (2 * n)
	}
	sort.SliceStable(d.Courses, func(i, j int) bool {
		return d.Courses[i].Progress > d.Courses[j].Progress
	})
	return d
}

// AggregateTeacher 只统计 createdBy 为该教师的课程
func AggregateTeacher(userID string, courses []model.Course, lessons []model.Lesson) TeacherDashboard {
	owned := make([]model.Course, 0, len(courses))
	for _, c := range courses {
		if c.CreatedBy == userID {
			owned = append(owned, c)
		}
	}
	d := TeacherDashboard{Courses: groupLessons(owned, lessons)}
	students := make(map[string]struct{})
	for _, c := range d.Courses {
		d.TotalLessons += len(c.Lessons)
		for _, l := range c.Lessons {
			for _, id := range l.CompletedBy {
				students[id] = struct{}{}
			}
		}
	}
	d.TotalCourses = len(d.Courses)
	d.TotalStudents = len(students)
	return d
}

// AdminInput 管理员视图所需的数据，由存储层按条件查询得到
type AdminInput struct {
	UsersByRole map[model.UserRole]int
	CourseCount int
	LessonCount int
	Users       []model.User
	Courses     []model.Course
}

// AggregateAdmin 最近的用户和课程按创建时间降序，时间相同按 id 升序
func AggregateAdmin(in AdminInput, recentLimit int) AdminDashboard {
	d := AdminDashboard{
		TotalStudents: in.UsersByRole[model.Student],
		TotalTeachers: in.UsersByRole[model.Teacher],
		TotalAdmins:   in.UsersByRole[model.Admin],
		TotalCourses:  in.CourseCount,
		TotalLessons:  in.LessonCount,
	}
	for _, n := range in.UsersByRole {
		d.TotalUsers += n
	}

	users := append([]model.User(nil), in.Users...)
	sort.SliceStable(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	courses := append([]model.Course(nil), in.Courses...)
	sort.SliceStable(courses, func(i, j int) bool {
		if !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].CreatedAt.After(courses[j].CreatedAt)
		}
		return courses[i].ID < courses[j].ID
	})
	if len(users) > recentLimit {
		users = users[:recentLimit]
	}
	if len(courses) > recentLimit {
		courses = courses[:recentLimit]
	}
	d.RecentUsers = users
	d.RecentCourses = courses
	return d
}

type DashboardService struct {
	UserRepo    UserStore
	CourseRepo  CourseStore
	LessonRepo  LessonStore
	RecentLimit int
}

func NewDashboardService(userRepo UserStore, courseRepo CourseStore, lessonRepo LessonStore, recentLimit int) *DashboardService {
	if recentLimit <= 0 {
		recentLimit = 5
	}
	return &DashboardService{
		UserRepo:    userRepo,
		CourseRepo:  courseRepo,
		LessonRepo:  lessonRepo,
		RecentLimit: recentLimit,
	}
}

// GetDashboard 按角色分派
func (s *DashboardService) GetDashboard(ctx context.Context, actor Actor) (Dashboard, error) {
	switch actor.Role {
	case model.Student:
		return s.StudentDashboard(ctx, actor.UserID)
	case model.Teacher:
		return s.TeacherDashboard(ctx, actor.UserID)
	case model.Admin:
		return s.AdminDashboard(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", util.ErrInvalidRole, actor.Role)
	}
}

func (s *DashboardService) coursesWithLessons(ctx context.Context, courses []model.Course) ([]model.Lesson, error) {
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	return s.LessonRepo.FindByCourses(ctx, ids)
}

func (s *DashboardService) StudentDashboard(ctx context.Context, userID string) (*StudentDashboard, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	courses, err := s.CourseRepo.FindByIDs(ctx, user.EnrolledCourses)
	if err != nil {
		return nil, err
	}
	lessons, err := s.coursesWithLessons(ctx, courses)
	if err != nil {
		return nil, err
	}
	d := AggregateStudent(userID, courses, lessons)
	return &d, nil
}

func (s *DashboardService) TeacherDashboard(ctx context.Context, userID string) (*TeacherDashboard, error) {
	courses, err := s.CourseRepo.FindByCreator(ctx, userID)
	if err != nil {
		return nil, err
	}
	lessons, err := s.coursesWithLessons(ctx, courses)
	if err != nil {
		return nil, err
	}
	d := AggregateTeacher(userID, courses, lessons)
	return &d, nil
}

func (s *DashboardService) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	counts, err := s.UserRepo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	courseCount, err := s.CourseRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	lessonCount, err := s.LessonRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.UserRepo.FindRecent(ctx, s.RecentLimit)
	if err != nil {
		return nil, err
	}
	courses, err := s.CourseRepo.FindRecent(ctx, s.RecentLimit)
	if err != nil {
		return nil, err
	}
	d := AggregateAdmin(AdminInput{
		UsersByRole: counts,
		CourseCount: courseCount,
		LessonCount: lessonCount,
		Users:       users,
		Courses:     courses,
	}, s.RecentLimit)
	return &d, nil
}
