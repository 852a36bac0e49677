package proof

// Score weights, fixed and summing to 1.0.
const (
	weightQuality      = 0.4
	weightAuthenticity = 0.3
	weightUniqueness   = 0.2
	weightOwnership    = 0.1
)

// Breakdown holds the four dimension scores and the final weighted
// total, all in [0, 1].
type Breakdown struct {
	Quality      float64
	Authenticity float64
	Uniqueness   float64
	Ownership    float64
	Total        float64
}

// composeScores derives the dimension scores from the run's validity
// flags. Uniqueness is a placeholder dimension and always receives full
// credit. The composition never consults the accumulated error list;
// the final verdict is decided separately, from the error list alone.
func composeScores(hasOwner, schemaValid, identityVerified bool) Breakdown {
	b := Breakdown{Uniqueness: 1.0}
	if hasOwner {
		b.Ownership = 1.0
	}
	if schemaValid {
		b.Quality = 1.0
	}
	if identityVerified && schemaValid {
		b.Authenticity = 1.0
	}
	b.Total = weightQuality*b.Quality +
		weightAuthenticity*b.Authenticity +
		weightUniqueness*b.Uniqueness +
		weightOwnership*b.Ownership
	return b
}
