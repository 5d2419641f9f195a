package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/embedding"
	"github.com/r-baldridge/chitin-core/internal/polyp"
	"github.com/r-baldridge/chitin-core/internal/proof"
	"github.com/r-baldridge/chitin-core/internal/sync"
)

type submitPolypRequest struct {
	Content     string    `json:"content"`
	ContentType string    `json:"content_type"`
	Language    *string   `json:"language,omitempty"`
	Vector      []float32 `json:"vector,omitempty"`
	SourceURL   *string   `json:"source_url,omitempty"`
	SourceTitle *string   `json:"source_title,omitempty"`
}

type submitPolypResponse struct {
	PolypID uuid.UUID `json:"polyp_id"`
	State   string    `json:"state"`
	Message string    `json:"message"`
}

// handleSubmitPolyp assembles a Draft capsule from raw content, generating
// a hash-fallback embedding when the caller didn't supply a vector and
// always attaching a placeholder proof, then saves, indexes, and gossips it
// to peers.
func (s *Server) handleSubmitPolyp(req submitPolypRequest) (submitPolypResponse, error) {
	now := time.Now()

	vector := req.Vector
	if vector == nil {
		vector = embedding.Hash(req.Content, 384)
	}

	language := ""
	if req.Language != nil {
		language = *req.Language
	}

	id, err := uuid.NewV7()
	if err != nil {
		return submitPolypResponse{}, fmt.Errorf("failed to generate capsule id: %w", err)
	}

	p := &polyp.Polyp{
		ID:        id,
		State:     polyp.NewState(polyp.StateDraft),
		CreatedAt: now,
		UpdatedAt: now,
		Subject: polyp.Subject{
			Payload: polyp.Payload{
				Content:     req.Content,
				ContentType: req.ContentType,
				Language:    language,
			},
			Vector: polyp.VectorEmbedding{
				Values:        vector,
				Normalization: "l2",
			},
		},
	}
	if s.identity != nil {
		p.Subject.Provenance.Creator = *s.identity
	}
	if req.SourceURL != nil {
		p.Subject.Provenance.Source.SourceURL = *req.SourceURL
	}
	if req.SourceTitle != nil {
		p.Subject.Provenance.Source.Title = *req.SourceTitle
	}
	p.Subject.Provenance.Source.AccessedAt = now

	textHash := proof.HashText(p.Subject.Payload.Content)
	vectorHash := proof.HashVector(p.Subject.Vector.Values)
	p.Proof = proof.Generate(textHash, vectorHash, "hash-fallback")

	if err := s.store.Save(p); err != nil {
		return submitPolypResponse{}, fmt.Errorf("failed to save polyp: %w", err)
	}
	if s.index != nil {
		s.index.Upsert(p.ID, p.Subject.Vector.Values)
	}
	if s.registry != nil {
		sync.GossipPush(context.Background(), s.registry, *p, nil)
	}

	return submitPolypResponse{
		PolypID: p.ID,
		State:   p.State.Tag,
		Message: "polyp submitted successfully",
	}, nil
}

type getPolypRequest struct {
	PolypID uuid.UUID `json:"polyp_id"`
}

type getPolypResponse struct {
	Polyp *polyp.Polyp `json:"polyp,omitempty"`
	Found bool         `json:"found"`
}

func (s *Server) handleGetPolyp(req getPolypRequest) (getPolypResponse, error) {
	p, err := s.store.Get(req.PolypID)
	if err != nil {
		return getPolypResponse{}, fmt.Errorf("failed to get polyp: %w", err)
	}
	return getPolypResponse{Polyp: p, Found: p != nil}, nil
}

type listPolypsRequest struct {
	StateFilter *string `json:"state_filter,omitempty"`
	Limit       *uint32 `json:"limit,omitempty"`
	Offset      *uint32 `json:"offset,omitempty"`
}

type listPolypsResponse struct {
	Polyps []*polyp.Polyp `json:"polyps"`
	Total  uint32         `json:"total"`
}

func (s *Server) handleListPolyps(req listPolypsRequest) (listPolypsResponse, error) {
	state := polyp.StateDraft
	if req.StateFilter != nil {
		state = *req.StateFilter
	}

	all, err := s.store.ListByState(state)
	if err != nil {
		return listPolypsResponse{}, fmt.Errorf("failed to list polyps: %w", err)
	}

	total := uint32(len(all))
	offset := 0
	if req.Offset != nil {
		offset = int(*req.Offset)
	}
	limit := 100
	if req.Limit != nil {
		limit = int(*req.Limit)
	}

	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	return listPolypsResponse{Polyps: all[offset:end], Total: total}, nil
}

type getPolypStateRequest struct {
	PolypID uuid.UUID `json:"polyp_id"`
}

type getPolypStateResponse struct {
	State *string `json:"state,omitempty"`
	Found bool    `json:"found"`
}

func (s *Server) handleGetPolypState(req getPolypStateRequest) (getPolypStateResponse, error) {
	p, err := s.store.Get(req.PolypID)
	if err != nil {
		return getPolypStateResponse{}, fmt.Errorf("failed to get polyp state: %w", err)
	}
	if p == nil {
		return getPolypStateResponse{Found: false}, nil
	}
	tag := p.State.Tag
	return getPolypStateResponse{State: &tag, Found: true}, nil
}

type getPolypProvenanceRequest struct {
	PolypID uuid.UUID `json:"polyp_id"`
}

type getPolypProvenanceResponse struct {
	Provenance *polyp.Provenance `json:"provenance,omitempty"`
	Found      bool              `json:"found"`
}

func (s *Server) handleGetPolypProvenance(req getPolypProvenanceRequest) (getPolypProvenanceResponse, error) {
	p, err := s.store.Get(req.PolypID)
	if err != nil {
		return getPolypProvenanceResponse{}, fmt.Errorf("failed to get polyp: %w", err)
	}
	if p == nil {
		return getPolypProvenanceResponse{Found: false}, nil
	}
	return getPolypProvenanceResponse{Provenance: &p.Subject.Provenance, Found: true}, nil
}

type getHardeningReceiptRequest struct {
	PolypID uuid.UUID `json:"polyp_id"`
}

type getHardeningReceiptResponse struct {
	Hardening  *polyp.HardeningLineage `json:"hardening,omitempty"`
	IsHardened bool                    `json:"is_hardened"`
}

func (s *Server) handleGetHardeningReceipt(req getHardeningReceiptRequest) (getHardeningReceiptResponse, error) {
	p, err := s.store.Get(req.PolypID)
	if err != nil {
		return getHardeningReceiptResponse{}, fmt.Errorf("failed to get polyp: %w", err)
	}
	if p == nil || p.Hardening == nil {
		return getHardeningReceiptResponse{IsHardened: false}, nil
	}
	return getHardeningReceiptResponse{Hardening: p.Hardening, IsHardened: true}, nil
}
