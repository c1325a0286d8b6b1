package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/traintrack/backend/internal/attendance"
	"github.com/traintrack/backend/internal/sessions"
	"github.com/traintrack/backend/pkg/queue"
)

// Mailer sends a single email. Optional; nil logs instead of sending.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Processor consumes background jobs: session reports roll participant logs
// into attendance records, enrollment emails confirm a new enrollment.
type Processor struct {
	sessionRepo    *sessions.Repository
	attendanceRepo *attendance.Repository
	queue          *queue.Queue
	mailer         Mailer
	logger         *zap.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(sessionRepo *sessions.Repository, attendanceRepo *attendance.Repository, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{sessionRepo: sessionRepo, attendanceRepo: attendanceRepo, queue: q, logger: logger}
}

// SetMailer sets the optional outbound mailer.
func (p *Processor) SetMailer(m Mailer) { p.mailer = m }

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeSessionReport:
		return p.processSessionReport(ctx, job)
	case queue.JobTypeEnrollmentEmail:
		return p.processEnrollmentEmail(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (p *Processor) processSessionReport(ctx context.Context, job *queue.Job) error {
	var payload queue.SessionReportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	userIDs, err := p.sessionRepo.ParticipantIDs(ctx, payload.SessionID)
	if err != nil {
		return fmt.Errorf("participant ids: %w", err)
	}
	if len(userIDs) == 0 {
		p.logger.Info("session had no participants", zap.String("session_id", payload.SessionID.String()))
		return nil
	}

	date := payload.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	if err := p.attendanceRepo.RecordSessionReport(ctx, payload.CourseID, payload.SessionID, payload.TrainerID, date, userIDs); err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}

	p.logger.Info("session report completed",
		zap.String("session_id", payload.SessionID.String()),
		zap.Int("participants", len(userIDs)))
	return nil
}

func (p *Processor) processEnrollmentEmail(ctx context.Context, job *queue.Job) error {
	var payload queue.EnrollmentEmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.RecipientEmail == "" {
		return nil
	}

	subject := "Enrollment confirmed: " + payload.CourseTitle
	body := fmt.Sprintf("You are enrolled in %q. See your dashboard for schedule and materials.", payload.CourseTitle)
	if p.mailer == nil {
		p.logger.Info("enrollment email (no mailer configured)",
			zap.String("to", payload.RecipientEmail),
			zap.String("course_id", payload.CourseID.String()))
		return nil
	}
	if err := p.mailer.Send(ctx, payload.RecipientEmail, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	p.logger.Info("enrollment email sent", zap.String("to", payload.RecipientEmail))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, key, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, key, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
