package service

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/internal/domain/subscriptions/repository"
)

// subscriptionDocument is the shape indexed for each subscription
type subscriptionDocument struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	UserID string `json:"user_id"`
}

// SearchHit represents a search match with its relevance score
type SearchHit struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Status string    `json:"status"`
	Score  float64   `json:"score"`
}

// SearchIndex provides full-text subscription name search using Bleve.
// The index is held in memory and rebuilt from the database per user on
// first use, then kept current by the service on writes.
type SearchIndex struct {
	index   bleve.Index
	indexMu sync.RWMutex
}

// NewSearchIndex creates a new in-memory search index
func NewSearchIndex() (*SearchIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	return &SearchIndex{index: index}, nil
}

// buildIndexMapping creates the Bleve index mapping for subscription documents
func buildIndexMapping() mapping.IndexMapping {
	// Text field for full-text name search
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = simple.Name

	// Keyword fields for exact owner/status filtering
	keywordFieldMapping := bleve.NewTextFieldMapping()
	keywordFieldMapping.Analyzer = keyword.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", textFieldMapping)
	docMapping.AddFieldMappingsAt("status", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("user_id", keywordFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = simple.Name

	return indexMapping
}

// IndexSubscription adds or updates a single subscription document
func (si *SearchIndex) IndexSubscription(sub *repository.Subscription) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	return si.index.Index(sub.ID.String(), documentFor(sub))
}

// IndexBatch indexes a set of subscriptions in one batch
func (si *SearchIndex) IndexBatch(subs []*repository.Subscription) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	batch := si.index.NewBatch()
	for _, sub := range subs {
		if err := batch.Index(sub.ID.String(), documentFor(sub)); err != nil {
			return fmt.Errorf("failed to index subscription %s: %w", sub.ID, err)
		}
	}
	if err := si.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch index: %w", err)
	}
	return nil
}

// DeleteSubscription removes a subscription document by ID
func (si *SearchIndex) DeleteSubscription(id uuid.UUID) error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	return si.index.Delete(id.String())
}

// Search performs a fuzzy full-text search over one user's subscription names
func (si *SearchIndex) Search(userID uuid.UUID, query string, limit int) ([]SearchHit, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	// Match query handles tokenization; one edit of fuzziness for typos
	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("name")
	matchQuery.SetFuzziness(1)

	// Restrict hits to the requesting user
	ownerQuery := bleve.NewTermQuery(userID.String())
	ownerQuery.SetField("user_id")

	searchRequest := bleve.NewSearchRequest(bleve.NewConjunctionQuery(matchQuery, ownerQuery))
	searchRequest.Size = limit
	searchRequest.Fields = []string{"name", "status"}

	searchResults, err := si.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]SearchHit, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		sh := SearchHit{Score: hit.Score}
		if id, err := uuid.Parse(hit.ID); err == nil {
			sh.ID = id
		}
		if name, ok := hit.Fields["name"].(string); ok {
			sh.Name = name
		}
		if status, ok := hit.Fields["status"].(string); ok {
			sh.Status = status
		}
		hits = append(hits, sh)
	}
	return hits, nil
}

// DocumentCount returns the number of documents in the index
func (si *SearchIndex) DocumentCount() (uint64, error) {
	si.indexMu.RLock()
	defer si.indexMu.RUnlock()

	return si.index.DocCount()
}

// Close closes the index
func (si *SearchIndex) Close() error {
	si.indexMu.Lock()
	defer si.indexMu.Unlock()

	if si.index != nil {
		return si.index.Close()
	}
	return nil
}

func documentFor(sub *repository.Subscription) subscriptionDocument {
	return subscriptionDocument{
		Name:   sub.Name,
		Status: string(sub.Status),
		UserID: sub.UserID.String(),
	}
}
