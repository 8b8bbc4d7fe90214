package diff

import "github.com/spherical/pdf-diff/internal/domain"

// Aggregate counts the script's edits against the filtered totals.
// The replaced percentage uses the larger of the two totals.
func Aggregate(script domain.EditScript, totalOld, totalNew int) domain.Statistics {
	s := domain.Statistics{TotalOld: totalOld, TotalNew: totalNew}
	for _, op := range script {
		switch op.Kind {
		case domain.OpInsert:
			s.Added += op.NewLen()
		case domain.OpDelete:
			s.Removed += op.OldLen()
		case domain.OpReplace:
			s.ReplacedOld += op.OldLen()
			s.ReplacedNew += op.NewLen()
		}
	}
	s.Replaced = max(s.ReplacedOld, s.ReplacedNew)

	s.AddedPct = percent(s.Added, totalNew)
	s.RemovedPct = percent(s.Removed, totalOld)
	s.ReplacedPct = percent(s.Replaced, max(totalOld, totalNew))
	return s
}

func percent(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}
