package extraction

import (
	"log"
	"math"
	"sort"
	"strings"

	"billscan/internal/domain"
	"billscan/internal/metrics"
	"billscan/internal/normalize"
)

// NumericTolerance is the relative distance from the median within which a
// reported amount counts as agreeing.
const NumericTolerance = 0.01

// BuildConsensus merges model results field by field. Text fields take the
// plurality value, numeric fields the median, list fields the union. Models
// that failed or returned nothing are kept in ModelResults but never vote.
func BuildConsensus(results []domain.ParseResult) domain.ConsensusResult {
	out := domain.ConsensusResult{
		FieldAgreement:  map[string]float64{},
		FieldConfidence: map[string]float64{},
		ModelResults:    results,
	}

	var confSum float64
	contributors := 0
	for _, r := range results {
		if domain.CountPresent(r.Data) > 0 {
			confSum += domain.ClampConfidence(r.Confidence)
			contributors++
		}
	}
	if contributors == 0 {
		log.Printf("extraction.BuildConsensus: no model produced any field (%d results)", len(results))
		metrics.ObserveConsensus(0)
		return out
	}
	out.Confidence = confSum / float64(contributors)

	var agreementSum float64
	for _, f := range domain.Fields {
		var voters []domain.ParseResult
		for _, r := range results {
			if f.Present(r.Data) {
				voters = append(voters, r)
			}
		}
		if len(voters) == 0 {
			continue
		}

		var agreement float64
		switch f.Kind {
		case domain.FieldKindText:
			agreement = textConsensus(f, voters, &out.Consensus)
		case domain.FieldKindNumeric:
			agreement = numericConsensus(f, voters, &out.Consensus)
		case domain.FieldKindList:
			agreement = listConsensus(f, voters, &out.Consensus)
		}
		if !f.Present(&out.Consensus) {
			continue
		}

		var voterConf float64
		for _, v := range voters {
			voterConf += domain.ClampConfidence(v.Confidence)
		}
		voterConf /= float64(len(voters))

		out.FieldAgreement[f.Name] = agreement
		out.FieldConfidence[f.Name] = domain.ClampConfidence(agreement * voterConf)
		agreementSum += agreement
	}

	if len(out.FieldAgreement) > 0 {
		out.AgreementScore = agreementSum / float64(len(out.FieldAgreement))
	}
	metrics.ObserveConsensus(out.AgreementScore)
	log.Printf("extraction.BuildConsensus: %d fields from %d/%d models (agreement=%.3f, confidence=%.3f)",
		len(out.FieldAgreement), contributors, len(results), out.AgreementScore, out.Confidence)
	return out
}

type textGroup struct {
	value   string
	votes   int
	maxConf float64
	first   int
}

// textConsensus picks the plurality value after case and whitespace folding.
// Ties go to the group holding the most confident model, then to the group
// seen first. The winner keeps the spelling it was first reported with.
func textConsensus(f domain.Field, voters []domain.ParseResult, dst *domain.ExtractedDocumentData) float64 {
	groups := map[string]*textGroup{}
	var order []*textGroup
	for i, v := range voters {
		raw := *(*f.Text(v.Data))
		key := normalize.Key(raw)
		g, ok := groups[key]
		if !ok {
			g = &textGroup{value: strings.TrimSpace(raw), first: i, maxConf: -1}
			groups[key] = g
			order = append(order, g)
		}
		g.votes++
		if v.Confidence > g.maxConf {
			g.maxConf = v.Confidence
		}
	}

	best := order[0]
	for _, g := range order[1:] {
		if g.votes > best.votes || (g.votes == best.votes && g.maxConf > best.maxConf) {
			best = g
		}
	}

	value := best.value
	*f.Text(dst) = &value
	return float64(best.votes) / float64(len(voters))
}

// numericConsensus takes the median, the lower middle value when the count
// is even, so the result is always a value some model reported.
func numericConsensus(f domain.Field, voters []domain.ParseResult, dst *domain.ExtractedDocumentData) float64 {
	values := make([]float64, 0, len(voters))
	for _, v := range voters {
		values = append(values, *(*f.Numeric(v.Data)))
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	median := sorted[(len(sorted)-1)/2]

	agree := 0
	for _, v := range values {
		if math.Abs(v-median) <= NumericTolerance*math.Abs(median) {
			agree++
		}
	}

	*f.Numeric(dst) = &median
	return float64(agree) / float64(len(voters))
}

// listConsensus unions every model's entries case-insensitively in first-seen
// order. A model agrees when its own set already equals the union.
func listConsensus(f domain.Field, voters []domain.ParseResult, dst *domain.ExtractedDocumentData) float64 {
	seen := map[string]bool{}
	var union []string
	sets := make([]map[string]bool, len(voters))
	for i, v := range voters {
		sets[i] = map[string]bool{}
		for _, item := range *f.List(v.Data) {
			key := normalize.Key(item)
			if key == "" {
				continue
			}
			sets[i][key] = true
			if !seen[key] {
				seen[key] = true
				union = append(union, strings.TrimSpace(item))
			}
		}
	}
	if len(union) == 0 {
		return 0
	}

	agree := 0
	for _, s := range sets {
		if len(s) == len(union) {
			agree++
		}
	}

	*f.List(dst) = union
	return float64(agree) / float64(len(voters))
}
