package service

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CacheFlushScheduler empties the retrieval cache on a cron schedule.
type CacheFlushScheduler struct {
	cron    *cron.Cron
	cache   RetrievalCache
	running atomic.Bool
	logger  *zap.Logger
}

func NewCacheFlushScheduler(cache RetrievalCache, logger *zap.Logger) *CacheFlushScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CacheFlushScheduler{
		cron:   cron.New(cron.WithParser(parser)),
		cache:  cache,
		logger: logger,
	}
}

// Schedule registers the flush job with a five-field cron spec or a
// descriptor such as "@hourly".
func (s *CacheFlushScheduler) Schedule(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.flush); err != nil {
		s.logger.Error("schedule cache flush failed", zap.String("spec", spec), zap.Error(err))
		return err
	}
	s.logger.Info("cache flush scheduled", zap.String("spec", spec))
	return nil
}

func (s *CacheFlushScheduler) Start() {
	s.cron.Start()
}

func (s *CacheFlushScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *CacheFlushScheduler) flush() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("cache flush skipped: still running")
		return
	}
	defer s.running.Store(false)

	if err := s.cache.Clear(context.Background()); err != nil {
		s.logger.Error("cache flush failed", zap.Error(err))
		return
	}
	s.logger.Info("retrieval cache flushed")
}
