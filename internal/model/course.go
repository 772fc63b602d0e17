package model

import (
	"errors"
	"strings"

	"gorm.io/datatypes"
)

// swagger:model Course
type Course struct {
	UUIDBase
	Title         string `gorm:"size:255;not null" json:"title"`
	Slug          string `gorm:"size:255;index" json:"slug"`
	Description   string `gorm:"type:text" json:"description"`
	ImageURL      string `gorm:"size:255" json:"imageUrl"`
	ImageObject   string `gorm:"size:255" json:"-"` // 已上传封面的对象名，外部链接时为空
	EstimatedTime string `gorm:"size:50" json:"estimatedTime"`
	Category      string `gorm:"size:50;index" json:"category"`
	Difficulty    string `gorm:"size:20;index" json:"difficulty"`
	Language      string `gorm:"size:20;index" json:"language"`
	Featured      bool   `gorm:"index;default:false" json:"featured"`
	CreatedBy     string `gorm:"type:varchar(36);index" json:"createdBy"`
}

func (Course) TableName() string {
	return "courses"
}

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentVideo ContentType = "video"
	ContentQuiz  ContentType = "quiz"
)

// Quiz 单选题，正确答案必须是选项之一
type Quiz struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type ContentBlock struct {
	Type    ContentType `json:"type"`
	Content string      `json:"content"`
	Quiz    *Quiz       `json:"quiz,omitempty"`
}

// Validate 返回的错误描述会直接展示给编辑者
func (b ContentBlock) Validate() error {
	switch b.Type {
	case ContentText, ContentVideo:
		return nil
	case ContentQuiz:
		if b.Quiz == nil {
			return errors.New("quiz block requires a quiz")
		}
		if strings.TrimSpace(b.Quiz.Question) == "" {
			return errors.New("quiz question is required")
		}
		if len(b.Quiz.Options) == 0 {
			return errors.New("quiz requires at least one option")
		}
		matches := 0
		for _, opt := range b.Quiz.Options {
			if opt == b.Quiz.CorrectAnswer {
				matches++
			}
		}
		if matches == 0 {
			return errors.New("quiz correct answer must be one of the options")
		}
		if matches > 1 {
			return errors.New("quiz correct answer must match exactly one option")
		}
		return nil
	}
	return errors.New("unknown content type: " + string(b.Type))
}

// swagger:model Lesson
type Lesson struct {
	UUIDBase
	CourseID        string                            `gorm:"type:varchar(36);not null;uniqueIndex:idx_lesson_course_order,priority:1" json:"courseId"`
	Title           string                            `gorm:"size:255;not null" json:"title"`
	Description     string                            `gorm:"type:text" json:"description"`
	Content         datatypes.JSONSlice[ContentBlock] `json:"content"`
	Order           int                               `gorm:"column:sort_order;default:0;uniqueIndex:idx_lesson_course_order,priority:2" json:"order"`
	DurationMinutes int                               `gorm:"default:0" json:"durationMinutes"`
	VideoURL        string                            `gorm:"size:255" json:"videoUrl"`
	CompletedBy     datatypes.JSONSlice[string]       `json:"completedBy"`
}

func (Lesson) TableName() string {
	return "lessons"
}

func (l *Lesson) IsCompletedBy(userID string) bool {
	return containsID(l.CompletedBy, userID)
}

// FindQuiz 在课时内容中查找测验
func (l *Lesson) FindQuiz(quizID string) *Quiz {
	for i := range l.Content {
		if q := l.Content[i].Quiz; q != nil && q.ID == quizID {
			return q
		}
	}
	return nil
}
