package service

import (
	"elearn_backend/internal/util"
	"fmt"
)

type View string

const (
	ViewCourseList   View = "course_list"
	ViewCourseDetail View = "course_detail"
	ViewLessonView   View = "lesson_view"
)

// NavState 当前视图及选中的课程、课时。Step 为课时内容块的下标
type NavState struct {
	View     View   `json:"view"`
	CourseID string `json:"courseId,omitempty"`
	LessonID string `json:"lessonId,omitempty"`
	Step     int    `json:"step"`
}

// Navigator 课程列表 -> 课程详情 -> 课时 的状态机。非法转移返回 ErrInvalidTransition，状态保持不变
type Navigator struct {
	state NavState
}

func NewNavigator() *Navigator {
	return &Navigator{state: NavState{View: ViewCourseList}}
}

func (n *Navigator) State() NavState {
	return n.state
}

func invalid(from View, action string) error {
	return fmt.Errorf("%w: %s from %s", util.ErrInvalidTransition, action, from)
}

func (n *Navigator) SelectCourse(courseID string) error {
	if n.state.View != ViewCourseList {
		return invalid(n.state.View, "select course")
	}
	n.state = NavState{View: ViewCourseDetail, CourseID: courseID}
	return nil
}

func (n *Navigator) SelectLesson(lessonID string) error {
	if n.state.View != ViewCourseDetail || n.state.CourseID == "" {
		return invalid(n.state.View, "select lesson")
	}
	n.state = NavState{View: ViewLessonView, CourseID: n.state.CourseID, LessonID: lessonID}
	return nil
}

func (n *Navigator) Back() error {
	switch n.state.View {
	case ViewLessonView:
		n.state = NavState{View: ViewCourseDetail, CourseID: n.state.CourseID}
	case ViewCourseDetail:
		n.state = NavState{View: ViewCourseList}
	default:
		return invalid(n.state.View, "back")
	}
	return nil
}

// Complete 只在课时视图有效，返回课程详情
func (n *Navigator) Complete() error {
	if n.state.View != ViewLessonView {
		return invalid(n.state.View, "complete")
	}
	n.state = NavState{View: ViewCourseDetail, CourseID: n.state.CourseID}
	return nil
}

// NextStep 前进一个内容块，blocks 为课时内容块数量
func (n *Navigator) NextStep(blocks int) error {
	if n.state.View != ViewLessonView {
		return invalid(n.state.View, "next step")
	}
	if n.state.Step < blocks-1 {
		n.state.Step++
	}
	return nil
}

func (n *Navigator) PrevStep() error {
	if n.state.View != ViewLessonView {
		return invalid(n.state.View, "previous step")
	}
	if n.state.Step > 0 {
		n.state.Step--
	}
	return nil
}

// FallbackToCourseList 选中的课程不存在
func (n *Navigator) FallbackToCourseList() {
	n.state = NavState{View: ViewCourseList}
}

// FallbackToCourseDetail 选中的课时不存在，课程仍在
func (n *Navigator) FallbackToCourseDetail() {
	n.state = NavState{View: ViewCourseDetail, CourseID: n.state.CourseID}
}

func (n *Navigator) Reset() {
	n.state = NavState{View: ViewCourseList}
}
