package provider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// LogfileSender appends one JSON line per notification to a dedicated file.
type LogfileSender struct {
	logger *zap.Logger
	file   *os.File
}

// NewLogfileSender opens (or creates) path for appending.
func NewLogfileSender(path string) (*LogfileSender, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create logfile dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open logfile: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(f), zapcore.InfoLevel)

	return &LogfileSender{logger: zap.New(core), file: f}, nil
}

func (s *LogfileSender) Channel() domain.Channel { return domain.ChannelLogfile }

func (s *LogfileSender) Send(_ context.Context, n *domain.Notification) error {
	s.logger.Info("notification",
		zap.Int64("id", n.ID),
		zap.String("source", n.Source),
		zap.String("priority", string(n.Priority)),
		zap.String("message", n.Message),
	)
	return nil
}

// Close flushes and closes the underlying file.
func (s *LogfileSender) Close() error {
	_ = s.logger.Sync()
	return s.file.Close()
}

var _ Sender = (*LogfileSender)(nil)
