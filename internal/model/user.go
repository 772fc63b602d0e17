package model

import (
	"time"

	"gorm.io/datatypes"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Student, Teacher, Admin:
		return true
	}
	return false
}

// CanAuthor 教师和管理员可以创建课程、回复论坛帖子
func (r UserRole) CanAuthor() bool {
	return r == Teacher || r == Admin
}

// swagger:model User
type User struct {
	UUIDBase
	Name                  string                      `gorm:"size:100;not null" json:"name"`
	Email                 string                      `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash          string                      `gorm:"size:100" json:"-"`
	Role                  UserRole                    `gorm:"size:20;index;default:'student'" json:"role"`
	PhotoURL              string                      `gorm:"size:255" json:"photoURL"`
	Bio                   string                      `gorm:"type:text" json:"bio"`
	PreferredLanguage     string                      `gorm:"size:10;default:'en'" json:"preferredLanguage"`
	EnrolledCourses       datatypes.JSONSlice[string] `json:"enrolledCourses"`
	CompletedLessonsCount int                         `gorm:"default:0" json:"completedLessonsCount"`
	CompletedCoursesCount int                         `gorm:"default:0" json:"completedCoursesCount"`
	LastLogin             *time.Time                  `json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsEnrolled(courseID string) bool {
	return containsID(u.EnrolledCourses, courseID)
}
