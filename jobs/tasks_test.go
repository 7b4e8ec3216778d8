package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== MOCKS =====

type mockMailer struct {
	sent []string
	fail bool
}

func (m *mockMailer) Send(to, subject, body string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, to)
	return nil
}

type mockScanner struct {
	runs int
	err  error
}

func (m *mockScanner) Scan(context.Context) error {
	m.runs++
	return m.err
}

// ===== TESTS =====

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendEmailJobDeliversMail(t *testing.T) {
	mailer := &mockMailer{}
	job := NewSendEmailJob(mailer, discardLogger(), nil)

	task, err := NewSendEmailTask(SendEmailPayload{To: "lab@chemstock.local", Subject: "Expiry alert", Body: "Acetone expires soon"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"lab@chemstock.local"}, mailer.sent)
}

func TestSendEmailJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewSendEmailJob(&mockMailer{}, discardLogger(), nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSendEmailJobSkipsRetryOnMissingRecipient(t *testing.T) {
	mailer := &mockMailer{}
	job := NewSendEmailJob(mailer, discardLogger(), nil)

	task, err := NewSendEmailTask(SendEmailPayload{Subject: "no recipient"})
	require.NoError(t, err)

	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
	assert.Empty(t, mailer.sent)
}

func TestSendEmailJobPropagatesDeliveryError(t *testing.T) {
	job := NewSendEmailJob(&mockMailer{fail: true}, discardLogger(), nil)

	task, err := NewSendEmailTask(SendEmailPayload{To: "lab@chemstock.local"})
	require.NoError(t, err)

	assert.Error(t, job.Handle(context.Background(), task))
}

func TestAlertScanJobRunsScan(t *testing.T) {
	scanner := &mockScanner{}
	job := NewAlertScanJob(scanner, discardLogger(), nil)

	require.NoError(t, job.Handle(context.Background(), NewAlertScanTask()))
	assert.Equal(t, 1, scanner.runs)
}

func TestAlertScanJobPropagatesScanError(t *testing.T) {
	scanner := &mockScanner{err: errors.New("db down")}
	job := NewAlertScanJob(scanner, discardLogger(), nil)

	assert.Error(t, job.Handle(context.Background(), NewAlertScanTask()))
}
