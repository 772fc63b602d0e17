package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 课程封面最大 5MB
const MaxCourseImageSize = 5 << 20

var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// 列表分页
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)
