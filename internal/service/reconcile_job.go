package service

import (
	"context"
	"elearn_backend/internal/util"
	"elearn_backend/pkg/logger"
	"elearn_backend/pkg/monitoring"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ProgressReconciler 定期按课时完成集合修正选课记录中的缓存进度
type ProgressReconciler struct {
	CourseRepo  CourseStore
	Enrollments *EnrollmentService

	cron    *cron.Cron
	running sync.Mutex
}

func NewProgressReconciler(courseRepo CourseStore, enrollments *EnrollmentService) *ProgressReconciler {
	return &ProgressReconciler{
		CourseRepo:  courseRepo,
		Enrollments: enrollments,
	}
}

// Start 按 cron 表达式启动，如 "@every 1h"
func (r *ProgressReconciler) Start(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		r.RunOnce(ctx)
	}); err != nil {
		return err
	}
	r.cron = c
	c.Start()
	logger.Log.Info("Progress reconciler started", zap.String("schedule", schedule))
	return nil
}

func (r *ProgressReconciler) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
}

// RunOnce 遍历所有课程，返回被修正的选课记录数。上一次运行未结束时直接跳过
func (r *ProgressReconciler) RunOnce(ctx context.Context) (int, error) {
	if !r.running.TryLock() {
		logger.Log.Warn("Progress reconciliation still running, skipped")
		return 0, nil
	}
	defer r.running.Unlock()

	courses, err := r.CourseRepo.List(ctx)
	if err != nil {
		monitoring.ReconcileRunsTotal.WithLabelValues("error").Inc()
		logger.Log.Error("Progress reconciliation failed", zap.Error(err))
		return 0, err
	}

	total := 0
	for _, c := range courses {
		fixed, err := r.Enrollments.Reconcile(ctx, c.ID)
		total += fixed
		// 运行期间被删除的课程直接跳过
		if errors.Is(err, util.ErrCourseNotFound) {
			logger.Log.Warn("Skipping reconciliation of deleted course", zap.String("course_id", c.ID))
			continue
		}
		if err != nil {
			monitoring.ReconcileRunsTotal.WithLabelValues("error").Inc()
			logger.Log.Error("Progress reconciliation failed",
				zap.String("course_id", c.ID),
				zap.Error(err))
			return total, err
		}
	}
	monitoring.ReconcileRunsTotal.WithLabelValues("ok").Inc()
	logger.Log.Info("Progress reconciliation finished",
		zap.Int("courses", len(courses)),
		zap.Int("fixed", total))
	return total, nil
}
