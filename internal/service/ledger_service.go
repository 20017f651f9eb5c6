package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/siscuentas/radicados-api/internal/models"
	"github.com/siscuentas/radicados-api/pkg/config"
	"github.com/siscuentas/radicados-api/pkg/jobs"
)

type accessLogStore interface {
	Create(ctx context.Context, entry *models.AccessLog) error
	ListRecent(ctx context.Context, documentID string, limit int) ([]models.AccessLog, error)
}

type accessLineWriter interface {
	AppendAccessLine(documentID, line string) error
}

type ledgerMetrics interface {
	LedgerDropped()
}

// LedgerService maintains the append-only per-document access ledger.
// Appends run asynchronously off the request path and are best effort:
// a failed write is logged and dropped, never surfaced to the caller.
type LedgerService struct {
	repo    accessLogStore
	files   accessLineWriter
	redis   *redis.Client
	metrics ledgerMetrics
	logger  *zap.Logger

	queue     *jobs.Queue
	retention int
}

// NewLedgerService wires the ledger over its three sinks: the database
// table, the per-document access.log file and the Redis recent cache.
// The redis client may be nil; recent reads then fall back to the table.
func NewLedgerService(repo accessLogStore, files accessLineWriter, redisClient *redis.Client, metrics ledgerMetrics, logger *zap.Logger, cfg config.LedgerConfig) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	retention := cfg.RecentEntries
	if retention <= 0 {
		retention = 100
	}
	s := &LedgerService{
		repo:      repo,
		files:     files,
		redis:     redisClient,
		metrics:   metrics,
		logger:    logger,
		retention: retention,
	}
	s.queue = jobs.NewQueue("access-ledger", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the ledger workers.
func (s *LedgerService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *LedgerService) Stop() {
	s.queue.Stop()
}

// Record enqueues one ledger entry. Failures are swallowed; business
// operations never fail because the ledger is unavailable.
func (s *LedgerService) Record(entry models.AccessLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      entry.ID,
		Type:    "ledger.append",
		Payload: entry,
	})
	if err != nil {
		s.drop(entry, err)
	}
}

// Recent returns the latest entries for a document, newest first, served
// from the Redis cache when possible and from the table otherwise.
func (s *LedgerService) Recent(ctx context.Context, documentID string, limit int) ([]models.AccessLog, error) {
	if limit <= 0 || limit > s.retention {
		limit = s.retention
	}
	if s.redis != nil {
		if entries, err := s.recentFromCache(ctx, documentID, limit); err == nil && entries != nil {
			return entries, nil
		}
	}
	return s.repo.ListRecent(ctx, documentID, limit)
}

func (s *LedgerService) process(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AccessLog)
	if !ok {
		s.logger.Sugar().Errorw("unexpected ledger payload type", "job_id", job.ID)
		return nil
	}

	// The table is the ledger of record; retries apply to it alone.
	if err := s.repo.Create(ctx, &entry); err != nil {
		if job.Attempt >= 2 {
			s.drop(entry, err)
			return nil
		}
		return fmt.Errorf("persist ledger entry: %w", err)
	}

	if s.files != nil {
		line := fmt.Sprintf("%s %s(%s) %s %s", entry.Action, entry.ActorName, entry.ActorRole, entry.ActorID, entry.Detail)
		if err := s.files.AppendAccessLine(entry.DocumentID, line); err != nil {
			s.logger.Sugar().Warnw("access.log append failed", "document_id", entry.DocumentID, "error", err)
		}
	}

	s.cacheEntry(ctx, entry)
	return nil
}

func (s *LedgerService) cacheEntry(ctx context.Context, entry models.AccessLog) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	key := ledgerKey(entry.DocumentID)
	pipe := s.redis.Pipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, int64(s.retention-1))
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Sugar().Warnw("ledger cache update failed", "document_id", entry.DocumentID, "error", err)
	}
}

func (s *LedgerService) recentFromCache(ctx context.Context, documentID string, limit int) ([]models.AccessLog, error) {
	raw, err := s.redis.LRange(ctx, ledgerKey(documentID), 0, int64(limit-1)).Result()
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	entries := make([]models.AccessLog, 0, len(raw))
	for _, item := range raw {
		var entry models.AccessLog
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *LedgerService) drop(entry models.AccessLog, err error) {
	if s.metrics != nil {
		s.metrics.LedgerDropped()
	}
	s.logger.Sugar().Warnw("ledger entry dropped",
		"document_id", entry.DocumentID,
		"action", entry.Action,
		"actor_id", entry.ActorID,
		"error", err,
	)
}

func ledgerKey(documentID string) string {
	return "ledger:recent:" + documentID
}
