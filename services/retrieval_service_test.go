package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/metrics"
	"github/itish2003/ragchat/models"
)

func newTestRetrieval(docs *fakeDocStore, memory *fakeMemoryStore, emb *fakeEmbedder, rec *metrics.Recorder) *RetrievalService {
	return NewRetrievalService(emb, []RetrievalStrategy{
		NewStructuredStrategy(docs, memory),
		NewSubstringStrategy(docs, memory, 20),
	}, 3, logger.NewNop(), rec)
}

func TestRetrievalService_Search(t *testing.T) {
	tests := []struct {
		name         string
		docs         *fakeDocStore
		memory       *fakeMemoryStore
		topK         int
		wantDocs     []string
		wantMemory   int
		wantDegraded bool
		wantStrategy string
	}{
		{
			name: "keyword and vector hits are merged and deduplicated",
			docs: &fakeDocStore{
				keyword: chunks("alpha", "beta"),
				vector:  chunks("beta", "gamma"),
			},
			memory:       &fakeMemoryStore{},
			topK:         3,
			wantDocs:     []string{"alpha", "beta", "gamma"},
			wantStrategy: StrategyStructured,
		},
		{
			name: "merged documents are capped at top_k",
			docs: &fakeDocStore{
				keyword: chunks("a", "b", "c"),
				vector:  chunks("d", "e", "f"),
			},
			memory:       &fakeMemoryStore{},
			topK:         2,
			wantDocs:     []string{"a", "b"},
			wantStrategy: StrategyStructured,
		},
		{
			name: "keyword failure falls back to substring",
			docs: &fakeDocStore{
				keywordErr: errBackendDown,
				vector:     chunks("vector hit"),
				substring:  chunks("substring hit"),
			},
			memory: &fakeMemoryStore{entries: []models.ChatMemoryEntry{
				{Query: "revenue question", Response: "12%"},
			}},
			topK:         3,
			wantDocs:     []string{"substring hit"},
			wantMemory:   1,
			wantDegraded: true,
			wantStrategy: StrategySubstring,
		},
		{
			name: "memory keyword failure also falls back",
			docs: &fakeDocStore{
				keyword:   chunks("kw"),
				substring: chunks("sub"),
			},
			memory:       &fakeMemoryStore{keywordErr: errBackendDown},
			topK:         3,
			wantDocs:     []string{"sub"},
			wantDegraded: true,
			wantStrategy: StrategySubstring,
		},
		{
			name: "every backend call failing still yields a well-formed result",
			docs: &fakeDocStore{
				keywordErr:   errBackendDown,
				vectorErr:    errBackendDown,
				substringErr: errBackendDown,
			},
			memory: &fakeMemoryStore{
				keywordErr:   errBackendDown,
				substringErr: errBackendDown,
				recentErr:    errBackendDown,
			},
			topK:         3,
			wantDocs:     []string{},
			wantDegraded: true,
			wantStrategy: StrategyNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestRetrieval(tt.docs, tt.memory, &fakeEmbedder{}, nil)

			got, err := svc.Search(context.Background(), "revenue", tt.topK)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantDocs, got.Documents)
			assert.NotNil(t, got.Memory)
			assert.Len(t, got.Memory, tt.wantMemory)
			assert.LessOrEqual(t, len(got.Documents), tt.topK)
			assert.LessOrEqual(t, len(got.Memory), tt.topK)
			assert.Equal(t, tt.wantDegraded, got.Degraded)
			assert.Equal(t, tt.wantStrategy, got.Strategy)
		})
	}
}

func TestRetrievalService_EmbeddingFailureIsReturned(t *testing.T) {
	docs := &fakeDocStore{keyword: chunks("alpha")}
	svc := newTestRetrieval(docs, &fakeMemoryStore{}, &fakeEmbedder{err: errors.New("quota exceeded")}, nil)

	got, err := svc.Search(context.Background(), "alpha", 3)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRetrievalService_ReembedsEveryCall(t *testing.T) {
	emb := &fakeEmbedder{}
	svc := newTestRetrieval(&fakeDocStore{}, &fakeMemoryStore{}, emb, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Search(context.Background(), "same query", 3)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, emb.calls)
}

func TestRetrievalService_DefaultTopK(t *testing.T) {
	docs := &fakeDocStore{keyword: chunks("a", "b", "c", "d", "e")}
	svc := newTestRetrieval(docs, &fakeMemoryStore{}, &fakeEmbedder{}, nil)

	got, err := svc.Search(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Len(t, got.Documents, 3)
}

func TestRetrievalService_RecordsStrategyMetric(t *testing.T) {
	rec := metrics.NewRecorder()
	docs := &fakeDocStore{vectorErr: errBackendDown, substring: chunks("x")}
	svc := newTestRetrieval(docs, &fakeMemoryStore{}, &fakeEmbedder{}, rec)

	_, err := svc.Search(context.Background(), "x", 3)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(rec.Registry(), "ragchat_retrieval_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSubstringStrategy_RecentEntriesFallback(t *testing.T) {
	memory := &fakeMemoryStore{substringErr: errBackendDown}
	for _, q := range []string{"one", "two", "three", "four"} {
		memory.entries = append(memory.entries, models.ChatMemoryEntry{Query: q, Response: "r-" + q})
	}
	s := NewSubstringStrategy(&fakeDocStore{}, memory, 20)

	got, err := s.Retrieve(context.Background(), "zzz", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"User: three\nBot: r-three", "User: four\nBot: r-four"}, got.Memory)
	assert.Equal(t, []string{}, got.Documents)
}

func TestUniqueChunkTexts(t *testing.T) {
	got := uniqueChunkTexts(10, chunks("a", "b"), chunks("b", "a", "c"), chunks("c"))
	assert.Equal(t, []string{"a", "b", "c"}, got)

	again := uniqueChunkTexts(10, chunks("a", "b"), chunks("b", "a", "c"), chunks("c"))
	assert.Equal(t, got, again)
}
