package diff

import "github.com/spherical/pdf-diff/internal/domain"

// Classify labels every filtered token on both sides from the edit script.
// Output order follows the input order; len(old) and len(new) are preserved.
func Classify(oldTokens, newTokens []domain.Token, script domain.EditScript) (oldOut, newOut []domain.ClassifiedToken) {
	oldOut = make([]domain.ClassifiedToken, 0, len(oldTokens))
	newOut = make([]domain.ClassifiedToken, 0, len(newTokens))

	for _, op := range script {
		var oc, nc domain.Classification
		switch op.Kind {
		case domain.OpEqual:
			oc, nc = domain.Unchanged, domain.Unchanged
		case domain.OpDelete:
			oc = domain.Deleted
		case domain.OpInsert:
			nc = domain.Inserted
		case domain.OpReplace:
			oc, nc = domain.Replaced, domain.Replaced
		}
		for i := op.I1; i < op.I2; i++ {
			oldOut = append(oldOut, domain.ClassifiedToken{Token: oldTokens[i], Classification: oc})
		}
		for j := op.J1; j < op.J2; j++ {
			newOut = append(newOut, domain.ClassifiedToken{Token: newTokens[j], Classification: nc})
		}
	}
	return oldOut, newOut
}
