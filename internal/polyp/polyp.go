// Package polyp defines the capsule data model: the atomic knowledge
// record that flows through the scoring, consensus, and hardening
// pipelines.
package polyp

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/r-baldridge/chitin-core/internal/identity"
)

// State tags the capsule's position in the lifecycle state machine.
// Molted carries a successor id the way the source's enum variant does;
// JSON encoding stays flat so persisted capsules remain simple to inspect.
type State struct {
	Tag         string     `json:"tag"`
	SuccessorID *uuid.UUID `json:"successor_id,omitempty"`
}

const (
	StateDraft       = "draft"
	StateSoft        = "soft"
	StateUnderReview = "under_review"
	StateApproved    = "approved"
	StateHardened    = "hardened"
	StateRejected    = "rejected"
	StateMolted      = "molted"
)

func NewState(tag string) State { return State{Tag: tag} }

func NewMoltedState(successor uuid.UUID) State {
	return State{Tag: StateMolted, SuccessorID: &successor}
}

// EmbeddingModelID identifies the model that produced a vector embedding.
type EmbeddingModelID struct {
	Provider   string `json:"provider"`
	Name       string `json:"name"`
	WeightsHash [32]byte `json:"weights_hash"`
	Dimensions int    `json:"dimensions"`
}

// VectorEmbedding is the capsule's semantic vector plus its provenance.
type VectorEmbedding struct {
	Values        []float32        `json:"values"`
	Model         EmbeddingModelID  `json:"model"`
	Quantization  string            `json:"quantization"`
	Normalization string            `json:"normalization"`
}

// Payload is the raw textual content of a capsule.
type Payload struct {
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	Language    string `json:"language,omitempty"`
}

// SourceAttribution records where a capsule's content was sourced from.
type SourceAttribution struct {
	SourceCID  string    `json:"source_cid,omitempty"`
	SourceURL  string    `json:"source_url,omitempty"`
	Title      string    `json:"title,omitempty"`
	License    string    `json:"license,omitempty"`
	AccessedAt time.Time `json:"accessed_at"`
}

// PipelineStep records a single transformation applied while producing a
// capsule (e.g. chunking, cleaning, embedding).
type PipelineStep struct {
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Params  map[string]any `json:"params,omitempty"`
}

// ProcessingPipeline is the ordered list of steps used to derive a capsule.
type ProcessingPipeline struct {
	Steps      []PipelineStep `json:"steps"`
	DurationMs int64          `json:"duration_ms"`
}

// Provenance ties a capsule back to its creator, source, and pipeline.
type Provenance struct {
	Creator  identity.NodeIdentity `json:"creator"`
	Source   SourceAttribution     `json:"source"`
	Pipeline ProcessingPipeline    `json:"pipeline"`
}

// Subject bundles a capsule's payload, vector, and provenance.
type Subject struct {
	Payload    Payload         `json:"payload"`
	Vector     VectorEmbedding `json:"vector"`
	Provenance Provenance      `json:"provenance"`
}

// ProofPublicInputs are the public commitments of the placeholder proof.
type ProofPublicInputs struct {
	TextHash   [32]byte `json:"text_hash"`
	VectorHash [32]byte `json:"vector_hash"`
	ModelID    string   `json:"model_id"`
}

// ZkProof is the placeholder attestation contract: a hash commitment in the
// shape a real zero-knowledge proof would occupy (scheme, value, vk_hash,
// public_inputs), preserved verbatim so a real prover can slot in later.
type ZkProof struct {
	Scheme       string            `json:"scheme"`
	Value        string            `json:"value"`
	VkHash       string            `json:"vk_hash"`
	PublicInputs ProofPublicInputs `json:"public_inputs"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ConsensusMetadata is attached to a capsule once an epoch has scored it.
type ConsensusMetadata struct {
	Epoch          uint64             `json:"epoch"`
	FinalScore     float64            `json:"final_score"`
	ValidatorScores map[string]float64 `json:"validator_scores,omitempty"`
	Hardened       bool               `json:"hardened"`
	FinalizedAt    time.Time          `json:"finalized_at"`
}

// HardeningLineage is recorded once a capsule is pinned to content-addressed
// storage and becomes immutable.
type HardeningLineage struct {
	CID          string    `json:"cid"`
	MerkleProof  []string  `json:"merkle_proof"`
	MerkleRoot   [32]byte  `json:"merkle_root"`
	Attestations []string  `json:"attestations"`
	AnchorTx     *string   `json:"anchor_tx,omitempty"`
	HardenedAt   time.Time `json:"hardened_at"`
}

// Polyp is the atomic unit of knowledge exchanged between nodes.
type Polyp struct {
	ID        uuid.UUID          `json:"id"`
	State     State              `json:"state"`
	Subject   Subject            `json:"subject"`
	Proof     ZkProof            `json:"proof"`
	Consensus *ConsensusMetadata `json:"consensus,omitempty"`
	Hardening *HardeningLineage  `json:"hardening,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Signature *[64]byte          `json:"signature,omitempty"`
}

// SignableBytes computes the canonical bytes a capsule's signature covers:
// SHA-256(id || content || vector_values_le || rfc3339(created_at)).
func (p *Polyp) SignableBytes() [32]byte {
	h := sha256.New()
	idBytes, _ := p.ID.MarshalBinary()
	h.Write(idBytes)
	h.Write([]byte(p.Subject.Payload.Content))
	for _, v := range p.Subject.Vector.Values {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}
	h.Write([]byte(p.CreatedAt.UTC().Format(time.RFC3339Nano)))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
