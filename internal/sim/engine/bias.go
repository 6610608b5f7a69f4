package engine

import (
	"math"

	"agora.ai/internal/protocol"
	"agora.ai/internal/sim/world"
)

// ComputeActionBiases turns the two core signals (relationship average and
// repetition penalty) plus world pressure into normalized per-action weights.
// The weights are observation data for the decision collaborator, never
// enforced; the repetition penalty doubles as a tie-break factor here.
func ComputeActionBiases(avgScore float64, snap world.Snapshot, penalties map[string]float64) map[string]float64 {
	biases := map[string]float64{
		protocol.KindImproveFood:   0.10,
		protocol.KindImproveEnergy: 0.10,
		protocol.KindImproveInfra:  0.10,
		protocol.KindBoostMorale:   0.05,
		protocol.KindSupportAgent:  0.10,
		protocol.KindOpposeAgent:   0.10,
		protocol.KindSendMessage:   0.10,
		protocol.KindPass:          0.05,
	}

	switch {
	case avgScore > 20:
		biases[protocol.KindSupportAgent] += 0.10
		biases[protocol.KindSendMessage] += 0.05
	case avgScore < -20:
		biases[protocol.KindOpposeAgent] += 0.10
	default:
		biases[protocol.KindSendMessage] += 0.10
	}

	if snap.CrisisLevel > 60 {
		biases[protocol.KindImproveFood] += 0.10
		biases[protocol.KindImproveEnergy] += 0.05
		biases[protocol.KindSendMessage] += 0.05
	}
	if snap.Resources[world.ResMorale] < 40 {
		biases[protocol.KindBoostMorale] += 0.10
		biases[protocol.KindSupportAgent] += 0.05
	}

	for kind, p := range penalties {
		if _, ok := biases[kind]; ok {
			biases[kind] *= p
		}
	}

	var total float64
	for _, v := range biases {
		total += v
	}
	if total > 0 {
		for k, v := range biases {
			biases[k] = math.Round(v/total*100) / 100
		}
	}
	return biases
}
