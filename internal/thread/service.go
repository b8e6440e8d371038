// Package thread implements the comment service: listing and creating
// comments anchored to document nodes.
package thread

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
	"github.com/Keekuun/nexus-studio-sub001/internal/logging"
	"github.com/Keekuun/nexus-studio-sub001/internal/metrics"
	"github.com/Keekuun/nexus-studio-sub001/internal/storage"
)

// Notifier is told about every comment that was created.
type Notifier interface {
	Publish(nodeID string, c comment.Comment)
}

// CreateInput holds the caller-supplied fields of a new comment.
type CreateInput struct {
	NodeID  string
	Content string
	Author  *comment.Author
}

// Service coordinates reads against the store and writes through the Writer.
type Service struct {
	store         storage.Store
	writer        *Writer
	notifier      Notifier
	metrics       *metrics.Metrics
	logger        *zap.Logger
	now           func() time.Time
	strictReads   bool
	degradeWrites bool
}

// ServiceConfig holds configuration for creating a service.
type ServiceConfig struct {
	Store    storage.Store
	Writer   *Writer
	Notifier Notifier
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Clock    func() time.Time

	// StrictReads returns store read failures to the caller instead of serving empty results.
	StrictReads bool
	// DegradeWrites returns the constructed comment even when persisting it failed.
	DegradeWrites bool
}

// NewService creates a comment service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		store:         cfg.Store,
		writer:        cfg.Writer,
		notifier:      cfg.Notifier,
		metrics:       cfg.Metrics,
		logger:        logger,
		now:           clock,
		strictReads:   cfg.StrictReads,
		degradeWrites: cfg.DegradeWrites,
	}
}

// List returns the comments of nodeID in insertion order; unknown nodes yield an empty slice.
func (s *Service) List(ctx context.Context, nodeID string) ([]comment.Comment, error) {
	threads, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	return threads.Node(nodeID), nil
}

// ListAll returns the whole node-to-comments mapping.
func (s *Service) ListAll(ctx context.Context) (comment.Threads, error) {
	return s.load(ctx)
}

// Get finds a comment by ID, replies included.
func (s *Service) Get(ctx context.Context, id string) (comment.Comment, error) {
	threads, err := s.load(ctx)
	if err != nil {
		return comment.Comment{}, err
	}

	return threads.Find(id)
}

// Create validates in, persists the new comment through the writer, and notifies subscribers.
func (s *Service) Create(ctx context.Context, in CreateInput) (comment.Comment, error) {
	c, err := comment.New(in.NodeID, in.Content, in.Author, s.now())
	if err != nil {
		return comment.Comment{}, err
	}

	log := logging.From(ctx, s.logger)

	if err := s.writer.Append(ctx, c); err != nil {
		storeFailed := errors.Is(err, storage.ErrWrite) || errors.Is(err, storage.ErrRead)
		if storeFailed {
			s.storeError("append")
		}

		if !s.degradeWrites || !storeFailed {
			log.Error("comment not persisted",
				zap.String("node_id", c.NodeID),
				zap.Error(err))

			return comment.Comment{}, err
		}

		log.Warn("comment not persisted; reporting success",
			zap.String("node_id", c.NodeID),
			zap.String("comment_id", c.ID),
			zap.Error(err))

		return c, nil
	}

	if s.metrics != nil {
		s.metrics.CommentsCreated.Inc()
	}

	log.Debug("comment created",
		zap.String("node_id", c.NodeID),
		zap.String("comment_id", c.ID))

	if s.notifier != nil {
		s.notifier.Publish(c.NodeID, c.Clone())
	}

	return c, nil
}

// load reads the store, serving an empty mapping on failure unless reads are strict.
func (s *Service) load(ctx context.Context) (comment.Threads, error) {
	threads, err := s.store.Load(ctx)
	if err == nil {
		return threads, nil
	}

	s.storeError("load")

	log := logging.From(ctx, s.logger)

	if s.strictReads || !errors.Is(err, storage.ErrRead) {
		log.Error("comment store read failed", zap.Error(err))

		return nil, err
	}

	log.Warn("comment store read failed; serving empty result", zap.Error(err))

	return comment.Threads{}, nil
}

func (s *Service) storeError(op string) {
	if s.metrics != nil {
		s.metrics.StoreErrors.WithLabelValues(op).Inc()
	}
}
