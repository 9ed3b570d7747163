package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bachelorbari/bachelorbari/internal/model"
)

// RequestMessage is the message of every request log record.
const RequestMessage = "api.request"

// Request log channels.
const (
	ChannelDaily  = "daily"
	ChannelStdout = "stdout"
)

// RequestSink receives one entry per HTTP request.
// Write must be safe for concurrent use and must not block on the caller.
type RequestSink interface {
	Write(ctx context.Context, entry model.RequestLogEntry)
}

// SlogSink writes request entries to an slog logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a SlogSink.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// Write logs entry at a level chosen by its status class.
func (s *SlogSink) Write(ctx context.Context, entry model.RequestLogEntry) {
	var userID any
	if entry.UserID != nil {
		userID = *entry.UserID
	}

	s.logger.LogAttrs(ctx, levelFor(entry.Status), RequestMessage,
		slog.String("ip", entry.IP),
		slog.String("method", entry.Method),
		slog.String("url", entry.URL),
		slog.String("user_agent", entry.UserAgent),
		slog.Any("user_id", userID),
		slog.Float64("duration_ms", entry.DurationMS),
		slog.Int("status", entry.Status),
	)
}

// levelFor maps 5xx to error and 4xx to warn.
func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// DailyConfig configures the daily file channel.
type DailyConfig struct {
	Dir    string
	MaxAge time.Duration
}

// DailySink writes request entries as JSON lines to a file rotated at
// midnight, one file per day.
type DailySink struct {
	logger *zap.Logger
	rotate *rotatelogs.RotateLogs
}

// NewDailySink opens the daily channel under cfg.Dir.
func NewDailySink(cfg DailyConfig) (*DailySink, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	opts := []rotatelogs.Option{rotatelogs.WithRotationTime(24 * time.Hour)}
	if cfg.MaxAge > 0 {
		opts = append(opts, rotatelogs.WithMaxAge(cfg.MaxAge))
	}
	rotate, err := rotatelogs.New(filepath.Join(cfg.Dir, "api-%Y-%m-%d.log"), opts...)
	if err != nil {
		return nil, fmt.Errorf("open daily log: %w", err)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotate), zapcore.InfoLevel)

	return &DailySink{logger: zap.New(core), rotate: rotate}, nil
}

func newZapSink(core zapcore.Core) *DailySink {
	return &DailySink{logger: zap.New(core)}
}

// Write logs entry at a level chosen by its status class.
func (s *DailySink) Write(_ context.Context, entry model.RequestLogEntry) {
	level := zapcore.InfoLevel
	switch levelFor(entry.Status) {
	case slog.LevelError:
		level = zapcore.ErrorLevel
	case slog.LevelWarn:
		level = zapcore.WarnLevel
	}

	s.logger.Log(level, RequestMessage,
		zap.String("ip", entry.IP),
		zap.String("method", entry.Method),
		zap.String("url", entry.URL),
		zap.String("user_agent", entry.UserAgent),
		zap.Stringp("user_id", entry.UserID),
		zap.Float64("duration_ms", entry.DurationMS),
		zap.Int("status", entry.Status),
	)
}

// Close flushes and closes the current file.
func (s *DailySink) Close() error {
	_ = s.logger.Sync()
	if s.rotate == nil {
		return nil
	}
	return s.rotate.Close()
}

// NewRequestSink selects the sink for channel. The returned close func
// releases the sink's resources.
func NewRequestSink(channel string, daily DailyConfig, app *slog.Logger) (RequestSink, func() error, error) {
	switch channel {
	case ChannelDaily:
		sink, err := NewDailySink(daily)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	case ChannelStdout, "":
		return NewSlogSink(app), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown request log channel %q", channel)
	}
}
