package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/metrics"
	"github/itish2003/ragchat/models"
)

// RetrievalService is the hybrid search adapter over documents and chat memory.
type RetrievalService struct {
	embedder   Embedder
	strategies []RetrievalStrategy
	defaultK   int
	log        logger.ILogger
	metrics    *metrics.Recorder
}

func NewRetrievalService(embedder Embedder, strategies []RetrievalStrategy, defaultK int, log logger.ILogger, rec *metrics.Recorder) *RetrievalService {
	return &RetrievalService{
		embedder:   embedder,
		strategies: strategies,
		defaultK:   defaultK,
		log:        log,
		metrics:    rec,
	}
}

// Search embeds the query and runs the strategies in order. Only an embedding
// failure is returned as an error; if every strategy fails the result is
// empty and marked degraded.
func (s *RetrievalService) Search(ctx context.Context, query string, topK int) (*models.RetrievalResult, error) {
	ctx, span := otel.Tracer("ragchat/retrieval").Start(ctx, "retrieval.search")
	defer span.End()

	if topK <= 0 {
		topK = s.defaultK
	}
	span.SetAttributes(attribute.Int("top_k", topK))

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	for _, strategy := range s.strategies {
		result, err := strategy.Retrieve(ctx, query, vector, topK)
		if err != nil {
			s.log.Warn("RETRIEVAL", "Strategy failed, trying next", map[string]interface{}{
				"strategy": strategy.Name(),
				"error":    err.Error(),
			})
			continue
		}
		result.Strategy = strategy.Name()
		result.Degraded = strategy.Degraded()
		s.metrics.RecordRetrieval(strategy.Name())
		span.SetAttributes(
			attribute.String("strategy", strategy.Name()),
			attribute.Int("documents", len(result.Documents)),
			attribute.Int("memory", len(result.Memory)),
		)
		s.log.Debug("RETRIEVAL", "Search finished", map[string]interface{}{
			"strategy":  strategy.Name(),
			"documents": len(result.Documents),
			"memory":    len(result.Memory),
		})
		return result, nil
	}

	s.log.Error("RETRIEVAL", "All retrieval strategies failed", map[string]interface{}{"query": query})
	s.metrics.RecordRetrieval(StrategyNone)
	span.SetAttributes(attribute.String("strategy", StrategyNone))
	result := models.EmptyRetrievalResult()
	result.Degraded = true
	result.Strategy = StrategyNone
	return result, nil
}
