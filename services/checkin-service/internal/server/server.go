package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andino/pulso/internal/models"
	"github.com/andino/pulso/services/checkin-service/internal/checkin"
	"github.com/andino/pulso/services/checkin-service/internal/store"
)

// Engine is the slice of the check-in service the HTTP layer drives.
type Engine interface {
	EmployeeByEmail(ctx context.Context, email string) (*models.Employee, error)
	CreateEmployee(ctx context.Context, email, name string, active bool) (*models.Employee, error)
	UpsertCheckin(ctx context.Context, day time.Time, emp models.Employee, threadID, firstMessageID string) (*models.Checkin, error)
	MarkReplied(ctx context.Context, checkinID string, ts time.Time) error
	ReplaceTasks(ctx context.Context, checkinID string, inputs []checkin.TaskInput) ([]models.Task, error)
	BuildSummary(ctx context.Context, day time.Time) (*checkin.Summary, error)
	Snapshot(ctx context.Context, day time.Time) ([]checkin.SnapshotTask, error)
}

// Server exposes the inbound-message webhook and a few read endpoints.
type Server struct {
	engine Engine
	now    func() time.Time
}

// New creates the HTTP server on top of the check-in engine.
func New(engine Engine) *Server {
	return &Server{engine: engine, now: time.Now}
}

// Router builds the gin handler.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/webhooks/inbound", s.handleInbound)
	r.GET("/summary/:date", s.handleSummary)

	admin := r.Group("/admin")
	{
		admin.POST("/employees", s.handleCreateEmployee)
	}

	return r
}

// InboundEvent is one delivery of an employee reply: conversation
// identifiers plus the already-parsed task list.
type InboundEvent struct {
	From       string              `json:"from" binding:"required"`
	ThreadID   string              `json:"thread_id"`
	MessageID  string              `json:"message_id"`
	Date       string              `json:"date"`
	ReceivedAt *time.Time          `json:"received_at"`
	Tasks      []checkin.TaskInput `json:"tasks"`
}

func (s *Server) handleInbound(c *gin.Context) {
	var event InboundEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	day := s.now().UTC()
	if event.Date != "" {
		parsed, err := time.Parse(models.DateFormat, event.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	ctx := c.Request.Context()
	emp, err := s.engine.EmployeeByEmail(ctx, event.From)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if emp == nil || !emp.Active {
		// Unknown or deactivated senders are ignored, nothing is stored.
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sender"})
		return
	}

	chk, err := s.engine.UpsertCheckin(ctx, day, *emp, event.ThreadID, event.MessageID)
	if err != nil {
		if errors.Is(err, store.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if chk == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check-in row not found after upsert"})
		return
	}

	replyAt := s.now().UTC()
	if event.ReceivedAt != nil {
		replyAt = event.ReceivedAt.UTC()
	}
	if err := s.engine.MarkReplied(ctx, chk.ID, replyAt); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tasks, err := s.engine.ReplaceTasks(ctx, chk.ID, event.Tasks)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Printf("Recorded check-in %s for %s with %d tasks", chk.ID, emp.Email, len(tasks))
	c.JSON(http.StatusOK, gin.H{"checkin": chk, "tasks": tasks})
}

func (s *Server) handleSummary(c *gin.Context) {
	day, err := time.Parse(models.DateFormat, c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	ctx := c.Request.Context()
	summary, err := s.engine.BuildSummary(ctx, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	snapshot, err := s.engine.Snapshot(ctx, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":      summary,
		"per_employee": checkin.Breakdown(snapshot),
	})
}

type createEmployeeRequest struct {
	Email  string `json:"email" binding:"required"`
	Name   string `json:"name"`
	Active *bool  `json:"active"`
}

func (s *Server) handleCreateEmployee(c *gin.Context) {
	var req createEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	emp, err := s.engine.CreateEmployee(c.Request.Context(), req.Email, req.Name, active)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"employee": emp})
}
