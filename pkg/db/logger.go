package db

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSlowThreshold is the query duration above which a warning is logged
const DefaultSlowThreshold = 200 * time.Millisecond

// GormLogrusLogger implements GORM's logger.Interface using logrus
type GormLogrusLogger struct {
	logger        *logrus.Logger
	slowThreshold time.Duration
	silent        bool
}

// NewGormLogrusLogger creates a GORM logger writing through baseLogger
func NewGormLogrusLogger(baseLogger *logrus.Logger) *GormLogrusLogger {
	return &GormLogrusLogger{
		logger:        baseLogger,
		slowThreshold: DefaultSlowThreshold,
	}
}

// LogMode implements logger.Interface. Only Silent is honoured; verbosity
// is otherwise controlled by the logrus level.
func (l *GormLogrusLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.silent = level == logger.Silent
	return &clone
}

// Info implements logger.Interface
func (l *GormLogrusLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"source": "gorm",
		"type":   "query_info",
	}).Debugf(msg, args...)
}

// Warn implements logger.Interface
func (l *GormLogrusLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"source": "gorm",
		"type":   "query_warn",
	}).Warnf(msg, args...)
}

// Error implements logger.Interface
func (l *GormLogrusLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.logger.WithContext(ctx).WithFields(logrus.Fields{
		"source": "gorm",
		"type":   "query_error",
	}).Errorf(msg, args...)
}

// Trace implements logger.Interface
func (l *GormLogrusLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := logrus.Fields{
		"source":   "gorm",
		"type":     "query_trace",
		"elapsed":  elapsed,
		"rows":     rows,
		"sql":      sql,
		"duration": elapsed.String(),
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		fields["error"] = err
		l.logger.WithContext(ctx).WithFields(fields).Error("database query failed")
		return
	}

	if elapsed > l.slowThreshold {
		l.logger.WithContext(ctx).WithFields(fields).Warn("slow query detected")
		return
	}

	l.logger.WithContext(ctx).WithFields(fields).Debug("database query executed")
}
