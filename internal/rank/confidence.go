package rank

// Confidence blend weights and adjustments.
const (
	confTopWeight       = 0.42 // top row's final score
	confGapWeight       = 0.28 // relative gap to the second row
	confStrongestWeight = 0.20 // strongest individual signal
	confAgreementWeight = 0.10 // cross-signal agreement
	confAgreementFloor  = 0.25 // signal level that counts as agreeing
	confTierBonus       = 0.15 // tier >= 2 exact match
	confWeakPenalty     = 0.10 // both lexical and semantic weak
)

// confidence estimates how sure the engine is that the top-ranked row is the
// answer the user wants. Clamped to [0,1].
func confidence(rows []RankedItem) float64 {
	if len(rows) == 0 {
		return 0
	}
	top := rows[0]

	gap := 1.0
	if len(rows) > 1 && top.Score > 0 {
		gap = clamp01((top.Score - rows[1].Score) / top.Score)
	}

	strongest := top.Lexical
	if top.Semantic > strongest {
		strongest = top.Semantic
	}
	if top.Taxonomy > strongest {
		strongest = top.Taxonomy
	}
	if tierNorm := float64(top.Tier) / float64(TierTitleExact); tierNorm > strongest {
		strongest = tierNorm
	}

	agreeing := 0
	for _, sig := range []float64{top.Lexical, top.Semantic, top.Taxonomy} {
		if sig > confAgreementFloor {
			agreeing++
		}
	}

	conf := confTopWeight*clamp01(top.Score) +
		confGapWeight*gap +
		confStrongestWeight*strongest +
		confAgreementWeight*(float64(agreeing)/3)

	if top.Tier >= TierURLMatch {
		conf += confTierBonus
	}
	if top.Lexical < minLexical && top.Semantic < minSemantic {
		conf -= confWeakPenalty
	}

	return clamp01(conf)
}
