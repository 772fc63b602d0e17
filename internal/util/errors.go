package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrCourseNotFound       = errors.New("course not found")
	ErrLessonNotFound       = errors.New("lesson not found")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrPostNotFound         = errors.New("forum post not found")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrInvalidProgressValue = errors.New("progress must be between 0 and 100")
	ErrInvalidContentBlock  = errors.New("invalid content block")
	ErrInvalidTransition    = errors.New("invalid navigation transition")
	ErrInvalidRole          = errors.New("invalid user role")
	ErrEmptyText            = errors.New("text is empty")
	ErrDuplicateLessonOrder = errors.New("lesson order already used in this course")
	ErrStoreUnavailable     = errors.New("document store unavailable")
	ErrTranslationFailed    = errors.New("translation failed")
	ErrEmailRegistered      = errors.New("该邮箱已被注册")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSessionNotFound      = errors.New("session not found, please sign in again")
	ErrPermissionDenied     = errors.New("permission denied")
)

// IsNotFound 判断是否为任一实体不存在的错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrCourseNotFound) ||
		errors.Is(err, ErrLessonNotFound) ||
		errors.Is(err, ErrEnrollmentNotFound) ||
		errors.Is(err, ErrPostNotFound) ||
		errors.Is(err, ErrQuizNotFound)
}
