package rpc

import (
	"fmt"

	"github.com/r-baldridge/chitin-core/internal/epoch"
)

type submitScoresRequest struct {
	Epoch       uint64    `json:"epoch"`
	ValidatorID uint16    `json:"validator_id"`
	Scores      []float64 `json:"scores"`
}

type submitScoresResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// handleSubmitScores writes a validator's per-coral scores into the current
// epoch's weight matrix row. Only accepted during the scoring/committing
// phases of the epoch the caller names.
func (s *Server) handleSubmitScores(req submitScoresRequest) (submitScoresResponse, error) {
	current := s.state.EpochManager.CurrentEpoch()
	if req.Epoch != current {
		return submitScoresResponse{}, fmt.Errorf("epoch mismatch: node is at epoch %d, request is for epoch %d", current, req.Epoch)
	}
	phase := s.state.EpochManager.Phase()
	if phase != epoch.PhaseScoring && phase != epoch.PhaseCommitting {
		return submitScoresResponse{}, fmt.Errorf("scores not accepted during %s phase", phase)
	}

	if err := s.state.SetWeightRow(int(req.ValidatorID), req.Scores); err != nil {
		return submitScoresResponse{}, err
	}

	return submitScoresResponse{Accepted: true, Message: "scores recorded"}, nil
}

type getEpochStatusRequest struct{}

type getEpochStatusResponse struct {
	Epoch uint64 `json:"epoch"`
	Phase string `json:"phase"`
}

func (s *Server) handleGetEpochStatus(_ getEpochStatusRequest) (getEpochStatusResponse, error) {
	return getEpochStatusResponse{
		Epoch: s.state.EpochManager.CurrentEpoch(),
		Phase: string(s.state.EpochManager.Phase()),
	}, nil
}

type getConsensusResultRequest struct{}

type getConsensusResultResponse struct {
	Available        bool      `json:"available"`
	ConsensusWeights []float64 `json:"consensus_weights,omitempty"`
	Incentives       []float64 `json:"incentives,omitempty"`
	Dividends        []float64 `json:"dividends,omitempty"`
	HardenedCount    int       `json:"hardened_count"`
}

func (s *Server) handleGetConsensusResult(_ getConsensusResultRequest) (getConsensusResultResponse, error) {
	r := s.state.LastConsensusResult()
	if r == nil {
		return getConsensusResultResponse{Available: false}, nil
	}
	return getConsensusResultResponse{
		Available:        true,
		ConsensusWeights: r.ConsensusWeights,
		Incentives:       r.Incentives,
		Dividends:        r.Dividends,
		HardenedCount:    len(r.HardenedPolypIDs),
	}, nil
}
