package service

import "elearn_backend/internal/model"

// CalculateCourseProgress 返回用户在课程中的完成百分比（四舍五入，0.5 进位）。
// 没有课时的课程进度为 0。
func CalculateCourseProgress(userID string, lessons []model.Lesson) int {
	if len(lessons) == 0 {
		return 0
	}
	completed := 0
	for i := range lessons {
		if lessons[i].IsCompletedBy(userID) {
			completed++
		}
	}
	return roundPercent(completed, len(lessons))
}

// roundPercent 整数运算的 round(100*n/d)，避免浮点误差
func roundPercent(n, d int) int {
	if d <= 0 {
		return 0
	}
	return (200*n + d) / (2 * d)
}
