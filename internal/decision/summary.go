package decision

// Stats summarizes a set of decisions for the fairness dashboard. Rates are
// percentages in [0, 100] and are zero when their denominator is zero.
type Stats struct {
	TotalDecisions   int     `json:"total_decisions"`
	TotalLoanApps    int     `json:"total_loan_applications"`
	LoanApprovalRate float64 `json:"loan_approval_rate"`
	FraudDetections  int     `json:"fraud_detections"`
	Overridden       int     `json:"overridden"`
	OverrideRate     float64 `json:"override_rate"`
}

// Summarize computes Stats over the current, possibly overridden, results.
func Summarize(decisions []*Decision) Stats {
	var s Stats
	approved := 0
	for _, d := range decisions {
		if d == nil {
			continue
		}
		s.TotalDecisions++
		switch d.Kind {
		case KindLoan:
			s.TotalLoanApps++
			if d.Result == ResultApproved {
				approved++
			}
		case KindFraud:
			if d.Result != ResultNormal {
				s.FraudDetections++
			}
		}
		if d.Overridden {
			s.Overridden++
		}
	}
	if s.TotalLoanApps > 0 {
		s.LoanApprovalRate = float64(approved) / float64(s.TotalLoanApps) * 100
	}
	if s.TotalDecisions > 0 {
		s.OverrideRate = float64(s.Overridden) / float64(s.TotalDecisions) * 100
	}
	return s
}
