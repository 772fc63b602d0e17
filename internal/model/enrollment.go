package model

import "time"

// Enrollment 以 userId_courseId 作为主键，每个用户每门课程只有一条
type Enrollment struct {
	ID                string    `gorm:"primaryKey;type:varchar(80)" json:"id"`
	UserID            string    `gorm:"type:varchar(36);uniqueIndex:idx_enrollment_user_course;not null" json:"userId"`
	CourseID          string    `gorm:"type:varchar(36);uniqueIndex:idx_enrollment_user_course;index;not null" json:"courseId"`
	Progress          int       `gorm:"default:0" json:"progress"`
	IsCompleted       bool      `gorm:"default:false" json:"isCompleted"`
	CompletionCounted bool      `gorm:"default:false" json:"-"`
	EnrolledAt        time.Time `json:"enrolledAt"`
	LastAccessedAt    time.Time `json:"lastAccessedAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func EnrollmentID(userID, courseID string) string {
	return userID + "_" + courseID
}
