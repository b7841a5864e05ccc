package controllers

import (
	"errors"
	"net/http"

	"stock_alert_system/errs"
	"stock_alert_system/scheduler"

	"github.com/gin-gonic/gin"
)

// SchedulerController exposes the operator control surface for the job
// scheduler.
type SchedulerController struct {
	sched *scheduler.Scheduler
}

// NewSchedulerController creates a new scheduler controller
func NewSchedulerController(sched *scheduler.Scheduler) *SchedulerController {
	return &SchedulerController{sched: sched}
}

// GetStatus returns the scheduler state and its jobs
// GET /api/scheduler/status
func (sc *SchedulerController) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, sc.sched.Status())
}

// GetJobs lists registered jobs with next-run times
// GET /api/scheduler/jobs
func (sc *SchedulerController) GetJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": sc.sched.Jobs()})
}

// Start starts the scheduler
// POST /api/scheduler/start
func (sc *SchedulerController) Start(c *gin.Context) {
	sc.sched.Start()
	c.JSON(http.StatusOK, gin.H{"message": "Scheduler started"})
}

// Stop stops the scheduler; in-flight jobs finish
// POST /api/scheduler/stop
func (sc *SchedulerController) Stop(c *gin.Context) {
	sc.sched.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "Scheduler stopped"})
}

// Restart restarts the scheduler keeping all registered jobs
// POST /api/scheduler/restart
func (sc *SchedulerController) Restart(c *gin.Context) {
	sc.sched.Restart()
	c.JSON(http.StatusOK, gin.H{"message": "Scheduler restarted"})
}

// PauseJob pauses one job by id
// POST /api/scheduler/jobs/:id/pause
func (sc *SchedulerController) PauseJob(c *gin.Context) {
	if err := sc.sched.PauseJob(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job paused"})
}

// ResumeJob resumes one job by id
// POST /api/scheduler/jobs/:id/resume
func (sc *SchedulerController) ResumeJob(c *gin.Context) {
	if err := sc.sched.ResumeJob(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job resumed"})
}

// RemoveJob unregisters one job by id
// DELETE /api/scheduler/jobs/:id
func (sc *SchedulerController) RemoveJob(c *gin.Context) {
	if err := sc.sched.RemoveJob(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job removed"})
}

// writeError maps an AppError to its HTTP status, falling back to 500.
func writeError(c *gin.Context, err error) {
	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
