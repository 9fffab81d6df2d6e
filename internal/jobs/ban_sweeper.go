// Package jobs contains the service's background workers.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredBanProcessor lifts temporary bans whose end date has passed.
type ExpiredBanProcessor interface {
	ProcessExpiredBans(ctx context.Context) (int, error)
}

// BanSweeper periodically lifts expired temporary bans.
type BanSweeper struct {
	processor ExpiredBanProcessor
	interval  time.Duration
	logger    *zap.Logger
}

func NewBanSweeper(processor ExpiredBanProcessor, interval time.Duration, logger *zap.Logger) *BanSweeper {
	return &BanSweeper{processor: processor, interval: interval, logger: logger}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *BanSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("ban sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ban sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.processor.ProcessExpiredBans(ctx); err != nil {
				s.logger.Error("ban sweep failed", zap.Error(err))
			}
		}
	}
}
