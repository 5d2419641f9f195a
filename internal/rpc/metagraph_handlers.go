package rpc

import (
	"fmt"

	"github.com/r-baldridge/chitin-core/internal/metagraph"
)

type getMetagraphRequest struct{}

type getMetagraphResponse struct {
	Epoch               uint64 `json:"epoch"`
	Block               uint64 `json:"block"`
	NodeCount           int    `json:"node_count"`
	TotalStake          uint64 `json:"total_stake"`
	TotalHardenedPolyps uint64 `json:"total_hardened_polyps"`
	EmissionRate        uint64 `json:"emission_rate"`
}

func (s *Server) handleGetMetagraph(_ getMetagraphRequest) (getMetagraphResponse, error) {
	reef := s.state.MetagraphManager().Current()
	if reef == nil {
		return getMetagraphResponse{}, nil
	}
	return getMetagraphResponse{
		Epoch:               reef.Epoch,
		Block:               reef.Block,
		NodeCount:           len(reef.Nodes),
		TotalStake:          reef.TotalStake,
		TotalHardenedPolyps: reef.TotalHardenedPolyps,
		EmissionRate:        reef.EmissionRate,
	}, nil
}

type getNodeMetricsRequest struct {
	UID uint16 `json:"uid"`
}

type getNodeMetricsResponse struct {
	Node  *metagraph.NodeInfo `json:"node,omitempty"`
	Found bool                `json:"found"`
}

func (s *Server) handleGetNodeMetrics(req getNodeMetricsRequest) (getNodeMetricsResponse, error) {
	reef := s.state.MetagraphManager().Current()
	if reef == nil {
		return getNodeMetricsResponse{Found: false}, nil
	}
	for i := range reef.Nodes {
		if reef.Nodes[i].UID == req.UID {
			return getNodeMetricsResponse{Node: &reef.Nodes[i], Found: true}, nil
		}
	}
	return getNodeMetricsResponse{Found: false}, fmt.Errorf("node uid %d not found in metagraph", req.UID)
}

type weightEntryResponse struct {
	CoralUID uint16  `json:"coral_uid"`
	Value    float64 `json:"value"`
}

type getWeightsRequest struct {
	UID *uint16 `json:"uid,omitempty"`
}

type getWeightsResponse struct {
	Weights map[uint16][]weightEntryResponse `json:"weights"`
}

// handleGetWeights reads the sparse validator -> coral weight snapshot from
// the current metagraph reef, filtering zero entries the way the original
// handler drops them rather than shipping a dense zero-filled matrix.
func (s *Server) handleGetWeights(req getWeightsRequest) (getWeightsResponse, error) {
	reef := s.state.MetagraphManager().Current()
	out := make(map[uint16][]weightEntryResponse)
	if reef == nil {
		return getWeightsResponse{Weights: out}, nil
	}
	for uid, entries := range reef.Weights {
		if req.UID != nil && uid != *req.UID {
			continue
		}
		for _, e := range entries {
			if e.Value <= 0 {
				continue
			}
			out[uid] = append(out[uid], weightEntryResponse{CoralUID: e.CoralUID, Value: e.Value})
		}
	}
	return getWeightsResponse{Weights: out}, nil
}

type getBondsRequest struct {
	UID *uint16 `json:"uid,omitempty"`
}

type getBondsResponse struct {
	Bonds map[uint16][]weightEntryResponse `json:"bonds"`
}

func (s *Server) handleGetBonds(req getBondsRequest) (getBondsResponse, error) {
	reef := s.state.MetagraphManager().Current()
	out := make(map[uint16][]weightEntryResponse)
	if reef == nil {
		return getBondsResponse{Bonds: out}, nil
	}
	for uid, entries := range reef.Bonds {
		if req.UID != nil && uid != *req.UID {
			continue
		}
		for _, e := range entries {
			if e.Value <= 0 {
				continue
			}
			out[uid] = append(out[uid], weightEntryResponse{CoralUID: e.CoralUID, Value: e.Value})
		}
	}
	return getBondsResponse{Bonds: out}, nil
}
