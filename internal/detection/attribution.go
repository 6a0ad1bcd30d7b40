package detection

// UnambiguousPersonID returns the person of the only face in the set, or ""
// when the set is empty, holds several faces, or the single face is
// unrecognized.
func (s Set) UnambiguousPersonID() string {
	if len(s) != 1 || s[0].Name == Unknown {
		return ""
	}
	return s[0].PersonID
}

// BestPersonID returns the recognized face with the highest similarity.
// Faces without a similarity score rank below every scored face.
func (s Set) BestPersonID() string {
	best := -1
	bestScore := -1.0
	for i, r := range s {
		if !r.Known() || r.PersonID == "" {
			continue
		}
		score := -0.5
		if r.Similarity != nil {
			score = *r.Similarity
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return ""
	}
	return s[best].PersonID
}
