package service

import (
	"elearn_backend/internal/util"
	"errors"
	"testing"
)

func TestNavigatorSelectThenBackRestoresDetail(t *testing.T) {
	n := NewNavigator()
	if n.State().View != ViewCourseList {
		t.Fatalf("initial view: want=%s got=%s", ViewCourseList, n.State().View)
	}
	if err := n.SelectCourse("c1"); err != nil {
		t.Fatalf("SelectCourse: %v", err)
	}
	before := n.State()
	if err := n.SelectLesson("l1"); err != nil {
		t.Fatalf("SelectLesson: %v", err)
	}
	if got := n.State(); got.View != ViewLessonView || got.CourseID != "c1" || got.LessonID != "l1" {
		t.Fatalf("lesson view: got=%+v", got)
	}
	if err := n.Back(); err != nil {
		t.Fatalf("Back: %v", err)
	}
	if got := n.State(); got != before {
		t.Fatalf("after back: want=%+v got=%+v", before, got)
	}
	if err := n.Back(); err != nil {
		t.Fatalf("Back to list: %v", err)
	}
	if got := n.State(); got.View != ViewCourseList || got.CourseID != "" {
		t.Fatalf("course list: got=%+v", got)
	}
}

func TestNavigatorInvalidTransitionsKeepState(t *testing.T) {
	tests := []struct {
		name  string
		setup func(n *Navigator)
		act   func(n *Navigator) error
	}{
		{"select lesson from list", func(n *Navigator) {}, func(n *Navigator) error { return n.SelectLesson("l1") }},
		{"back from list", func(n *Navigator) {}, func(n *Navigator) error { return n.Back() }},
		{"complete from detail", func(n *Navigator) { n.SelectCourse("c1") }, func(n *Navigator) error { return n.Complete() }},
		{"select course from detail", func(n *Navigator) { n.SelectCourse("c1") }, func(n *Navigator) error { return n.SelectCourse("c2") }},
		{"next step from list", func(n *Navigator) {}, func(n *Navigator) error { return n.NextStep(3) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNavigator()
			tt.setup(n)
			before := n.State()
			if err := tt.act(n); !errors.Is(err, util.ErrInvalidTransition) {
				t.Fatalf("want=%v got=%v", util.ErrInvalidTransition, err)
			}
			if n.State() != before {
				t.Fatalf("state changed: before=%+v after=%+v", before, n.State())
			}
		})
	}
}

func TestNavigatorCompleteAndSteps(t *testing.T) {
	n := NewNavigator()
	n.SelectCourse("c1")
	n.SelectLesson("l1")

	n.PrevStep()
	if n.State().Step != 0 {
		t.Fatalf("prev at start: want=0 got=%d", n.State().Step)
	}
	for i := 0; i < 5; i++ {
		n.NextStep(3)
	}
	if n.State().Step != 2 {
		t.Fatalf("next clamped: want=2 got=%d", n.State().Step)
	}

	if err := n.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := n.State(); got.View != ViewCourseDetail || got.CourseID != "c1" || got.LessonID != "" || got.Step != 0 {
		t.Fatalf("after complete: got=%+v", got)
	}

	n.Reset()
	if n.State().View != ViewCourseList {
		t.Fatalf("after reset: got=%+v", n.State())
	}
}
