package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/chemstock/chemstock/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeAlertScan is the task type for the periodic stock alert scan.
	TaskTypeAlertScan = "alerts:scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewAlertScanTask constructs the periodic alert scan task.
func NewAlertScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAlertScan, nil)
}

// MailSender delivers a single message.
type MailSender interface {
	Send(to, subject, body string) error
}

// SendEmailJob delivers queued mail through SMTP.
type SendEmailJob struct {
	Mailer  MailSender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSendEmailJob initialises the mail delivery handler.
func NewSendEmailJob(mailer MailSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *SendEmailJob {
	return &SendEmailJob{Mailer: mailer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeSendEmail tasks.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Mailer == nil {
		return errors.New("send email: handler not configured")
	}
	tracker := j.Metrics.Track("send_email")
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	if payload.To == "" {
		return tracker.End(asynq.SkipRetry)
	}
	if err := j.Mailer.Send(payload.To, payload.Subject, payload.Body); err != nil {
		j.Logger.Error("send email failed", slog.String("to", payload.To), slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("email delivered", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return tracker.End(nil)
}

// AlertScanner runs one pass of the stock alert rules.
type AlertScanner interface {
	Scan(ctx context.Context) error
}

// AlertScanJob evaluates alert rules and fans notifications out to users.
type AlertScanJob struct {
	Alerts  AlertScanner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewAlertScanJob initialises the alert scan handler.
func NewAlertScanJob(alerts AlertScanner, logger *slog.Logger, metrics *jobmetrics.Metrics) *AlertScanJob {
	return &AlertScanJob{
		Alerts:  alerts,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the alert scan.
func (j *AlertScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Alerts == nil {
		return errors.New("alert scan: handler not configured")
	}
	tracker := j.Metrics.Track("alert_scan")
	started := j.clock()
	if err := j.Alerts.Scan(ctx); err != nil {
		j.Logger.Error("alert scan failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("alert scan finished", slog.Duration("took", j.clock().Sub(started)))
	return tracker.End(nil)
}
