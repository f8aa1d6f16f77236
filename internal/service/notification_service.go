package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-booking-api/internal/mailer"
	"github.com/noah-isme/tutor-booking-api/internal/models"
	"github.com/noah-isme/tutor-booking-api/pkg/jobs"
)

const notificationJobType = "reservation.email"

var reservationMailTemplate = template.Must(template.New("reservation").Parse(`{{.Heading}}

Team:      {{.Reservation.TeamName}}
Tutor:     {{.Reservation.TutorName}}
Date:      {{.Reservation.ClassDate}}
Time:      {{.Reservation.TimeSlot}}
Link:      {{if .Reservation.ResourceLink}}{{.Reservation.ResourceLink}}{{else}}-{{end}}

Question:
{{if .Reservation.Question}}{{.Reservation.Question}}{{else}}-{{end}}
`))

// NotificationConfig configures reservation emails.
type NotificationConfig struct {
	Enabled         bool
	OperatorAddress string
	Workers         int
	MaxRetries      int
	RetryDelay      time.Duration
}

type reservationNotice struct {
	Kind        string
	Reservation models.Reservation
	Recipients  []string
}

// NotificationService emails tutors about new and changed reservations on a
// background queue. Failures are logged and counted, never returned to callers.
type NotificationService struct {
	mailer  mailer.Mailer
	queue   *jobs.Queue
	config  NotificationConfig
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService. Call Start before use.
func NewNotificationService(m mailer.Mailer, config NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{mailer: m, config: config, metrics: metrics, logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.handle, jobs.QueueConfig{
		Workers:    config.Workers,
		MaxRetries: config.MaxRetries,
		RetryDelay: config.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.config.Enabled {
		s.queue.Start(ctx)
	}
}

// Stop waits for workers to exit. Queued but undelivered mail is dropped.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyReservation queues an email to the tutor and the operator copy address.
func (s *NotificationService) NotifyReservation(ctx context.Context, kind string, reservation models.Reservation, tutor *models.Tutor) {
	if !s.config.Enabled {
		return
	}
	recipients := make([]string, 0, 2)
	if tutor != nil && tutor.Email != "" {
		recipients = append(recipients, tutor.Email)
	}
	if s.config.OperatorAddress != "" {
		recipients = append(recipients, s.config.OperatorAddress)
	}
	if len(recipients) == 0 {
		return
	}

	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    notificationJobType,
		Payload: reservationNotice{Kind: kind, Reservation: reservation, Recipients: recipients},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification("dropped")
		s.logger.Warn("failed to queue reservation email",
			zap.String("reservation_id", reservation.ID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(reservationNotice)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	msg, err := renderReservationMail(notice)
	if err != nil {
		s.metrics.RecordNotification("failed")
		s.logger.Error("failed to render reservation email", zap.Error(err))
		return nil
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.RecordNotification("failed")
		return fmt.Errorf("send reservation email: %w", err)
	}
	s.metrics.RecordNotification("sent")
	return nil
}

func renderReservationMail(notice reservationNotice) (mailer.Message, error) {
	heading := "A new tutoring session was reserved."
	subject := "New reservation"
	if notice.Kind == models.ChangeUpdated {
		heading = "A tutoring session reservation was updated."
		subject = "Reservation updated"
	}
	subject = fmt.Sprintf("[%s] %s %s %s", subject, notice.Reservation.TeamName, notice.Reservation.ClassDate, notice.Reservation.TimeSlot)

	var body bytes.Buffer
	if err := reservationMailTemplate.Execute(&body, struct {
		Heading     string
		Reservation models.Reservation
	}{Heading: heading, Reservation: notice.Reservation}); err != nil {
		return mailer.Message{}, fmt.Errorf("render reservation email: %w", err)
	}
	return mailer.Message{
		To:      notice.Recipients,
		Subject: strings.TrimSpace(subject),
		Body:    body.String(),
	}, nil
}
