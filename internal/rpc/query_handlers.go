package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/embedding"
	"github.com/r-baldridge/chitin-core/internal/vectorindex"
)

type searchResult struct {
	PolypID    uuid.UUID `json:"polyp_id"`
	Similarity float32   `json:"similarity"`
	Content    *string   `json:"content,omitempty"`
	State      string    `json:"state"`
	CID        *string   `json:"cid,omitempty"`
}

type semanticSearchRequest struct {
	QueryText    *string  `json:"query_text,omitempty"`
	QueryVector  []float32 `json:"query_vector,omitempty"`
	ModelID      *string  `json:"model_id,omitempty"`
	TopK         *uint32  `json:"top_k,omitempty"`
	MinTrust     *float64 `json:"min_trust,omitempty"`
	HardenedOnly *bool    `json:"hardened_only,omitempty"`
	ReefZone     *string  `json:"reef_zone,omitempty"`
}

type semanticSearchResponse struct {
	Results      []searchResult `json:"results"`
	SearchTimeMs uint64         `json:"search_time_ms"`
	TotalFound   uint32         `json:"total_found"`
}

// handleSemanticSearch runs a brute-force top-k cosine search over the
// in-memory vector index,
// falling back to a deterministic hash embedding when the caller only
// supplied query text.
func (s *Server) handleSemanticSearch(req semanticSearchRequest) (semanticSearchResponse, error) {
	start := time.Now()

	queryVector := req.QueryVector
	if queryVector == nil {
		if req.QueryText == nil {
			return semanticSearchResponse{}, fmt.Errorf("either query_vector or query_text must be provided")
		}
		queryVector = embedding.Hash(*req.QueryText, 384)
	}

	topK := 10
	if req.TopK != nil {
		topK = int(*req.TopK)
	}

	raw := s.index.Search(queryVector, topK)
	totalFound := uint32(len(raw))

	results := make([]searchResult, 0, len(raw))
	for _, r := range raw {
		p, err := s.store.Get(r.ID)
		if err != nil {
			return semanticSearchResponse{}, fmt.Errorf("failed to fetch polyp %s: %w", r.ID, err)
		}

		var content *string
		var cid *string
		state := "unknown"
		if p != nil {
			c := p.Subject.Payload.Content
			content = &c
			state = p.State.Tag
			if p.Hardening != nil {
				cidVal := p.Hardening.CID
				cid = &cidVal
			}
		}

		results = append(results, searchResult{
			PolypID:    r.ID,
			Similarity: r.Similarity,
			Content:    content,
			State:      state,
			CID:        cid,
		})
	}

	return semanticSearchResponse{
		Results:      results,
		SearchTimeMs: uint64(time.Since(start).Milliseconds()),
		TotalFound:   totalFound,
	}, nil
}

type hybridSearchRequest struct {
	QueryText      string    `json:"query_text"`
	QueryVector    []float32 `json:"query_vector,omitempty"`
	TopK           *uint32   `json:"top_k,omitempty"`
	SemanticWeight *float64  `json:"semantic_weight,omitempty"`
}

type hybridSearchResponse struct {
	Results      []searchResult `json:"results"`
	SearchTimeMs uint64         `json:"search_time_ms"`
}

// handleHybridSearch delegates to semantic search; true keyword blending is
// not implemented, matching the scope this handler started from.
func (s *Server) handleHybridSearch(req hybridSearchRequest) (hybridSearchResponse, error) {
	qv := req.QueryVector
	if qv == nil {
		qv = embedding.Hash(req.QueryText, 384)
	}
	resp, err := s.handleSemanticSearch(semanticSearchRequest{
		QueryText:   &req.QueryText,
		QueryVector: qv,
		TopK:        req.TopK,
	})
	if err != nil {
		return hybridSearchResponse{}, err
	}
	return hybridSearchResponse{Results: resp.Results, SearchTimeMs: resp.SearchTimeMs}, nil
}

type getByCIDRequest struct {
	CID string `json:"cid"`
}

type getByCIDResponse struct {
	Polyp any  `json:"polyp,omitempty"`
	Found bool `json:"found"`
}

func (s *Server) handleGetByCID(req getByCIDRequest) (getByCIDResponse, error) {
	if s.hardened == nil {
		return getByCIDResponse{Found: false}, nil
	}
	p, err := s.hardened.GetHardened(context.Background(), req.CID)
	if err != nil {
		return getByCIDResponse{Found: false}, nil
	}
	return getByCIDResponse{Polyp: p, Found: true}, nil
}

type explainResultRequest struct {
	PolypID     uuid.UUID `json:"polyp_id"`
	QueryVector []float32 `json:"query_vector"`
}

type explainResultResponse struct {
	CosineSimilarity float32 `json:"cosine_similarity"`
	Dimensions       uint32  `json:"dimensions"`
	ModelID          *string `json:"model_id,omitempty"`
	Explanation      string  `json:"explanation"`
}

func (s *Server) handleExplainResult(req explainResultRequest) (explainResultResponse, error) {
	p, err := s.store.Get(req.PolypID)
	if err != nil {
		return explainResultResponse{}, fmt.Errorf("failed to get polyp: %w", err)
	}
	if p == nil {
		return explainResultResponse{}, fmt.Errorf("polyp %s not found", req.PolypID)
	}

	storedVec := p.Subject.Vector.Values
	similarity := vectorindex.CosineSimilarity(req.QueryVector, storedVec)
	modelID := fmt.Sprintf("%s/%s", p.Subject.Vector.Model.Provider, p.Subject.Vector.Model.Name)

	return explainResultResponse{
		CosineSimilarity: similarity,
		Dimensions:       uint32(len(storedVec)),
		ModelID:          &modelID,
		Explanation:      fmt.Sprintf("Cosine similarity: %.4f. Vector dimensions: %d.", similarity, len(storedVec)),
	}, nil
}
