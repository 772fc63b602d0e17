package model

// swagger:model ForumPost
type ForumPost struct {
	UUIDBase
	Title      string  `gorm:"size:255;not null" json:"title"`
	Content    string  `gorm:"type:text;not null" json:"content"`
	AuthorID   string  `gorm:"type:varchar(36);index" json:"authorId"`
	AuthorName string  `gorm:"size:100" json:"authorName"`
	CourseID   *string `gorm:"type:varchar(36);index" json:"courseId,omitempty"`
	LessonID   *string `gorm:"type:varchar(36);index" json:"lessonId,omitempty"`
	ReplyCount int     `gorm:"default:0;index" json:"replyCount"`
}

func (ForumPost) TableName() string {
	return "forum_posts"
}

// swagger:model PostReply
type PostReply struct {
	UUIDBase
	PostID     string `gorm:"type:varchar(36);index" json:"postId"`
	Content    string `gorm:"type:text;not null" json:"content"`
	AuthorID   string `gorm:"type:varchar(36);index" json:"authorId"`
	AuthorName string `gorm:"size:100" json:"authorName"`
}

func (PostReply) TableName() string {
	return "post_replies"
}
