package logger

import (
	"time"
)

// OperationLogger tracks a multi-step operation such as a commit batch,
// logging each step with consistent fields and a final duration.
type OperationLogger struct {
	operation string
	logger    Logger
	startTime time.Time
}

// NewOperationLogger creates a logger scoped to one named operation
func NewOperationLogger(operation string, logger Logger) *OperationLogger {
	if logger == nil {
		logger = GetGlobalLogger()
	}

	return &OperationLogger{
		operation: operation,
		logger:    logger.WithField("operation", operation),
		startTime: time.Now(),
	}
}

// WithField adds a field to all subsequent log entries
func (ol *OperationLogger) WithField(key string, value interface{}) *OperationLogger {
	ol.logger = ol.logger.WithField(key, value)
	return ol
}

// Step logs an intermediate step of the operation
func (ol *OperationLogger) Step(step string) {
	ol.logger.WithFields(Fields{
		"step":    step,
		"elapsed": time.Since(ol.startTime).String(),
	}).Debug("operation step")
}

// Progress logs processed/total counts for long-running batches
func (ol *OperationLogger) Progress(message string, processed, total int) {
	ol.logger.WithFields(Fields{
		"processed": processed,
		"total":     total,
	}).Info(message)
}

// Success logs operation completion with total duration
func (ol *OperationLogger) Success(message string) {
	ol.logger.WithField("duration", time.Since(ol.startTime).String()).Info(message)
}

// Failure logs operation failure with total duration
func (ol *OperationLogger) Failure(err error, message string) {
	ol.logger.WithError(err).
		WithField("duration", time.Since(ol.startTime).String()).
		Error(message)
}

// TimedOperation runs fn and logs its outcome and duration
func TimedOperation(operation string, logger Logger, fn func() error) error {
	ol := NewOperationLogger(operation, logger)

	if err := fn(); err != nil {
		ol.Failure(err, "operation failed")
		return err
	}

	ol.Success("operation completed")
	return nil
}
