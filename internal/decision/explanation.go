package decision

import (
	"strings"

	consentmodels "trustbank/internal/consent/models"
)

type lineKind int

const (
	lineIntro lineKind = iota
	lineFactor
	lineNote
)

type line struct {
	kind   lineKind
	text   string
	factor Factor
}

// explanation collects structured lines; render turns them into prose for a
// given decision kind.
type explanation struct {
	lines []line
}

func (b *explanation) intro(text string) {
	b.lines = append(b.lines, line{kind: lineIntro, text: text})
}

func (b *explanation) factor(f Factor) {
	b.lines = append(b.lines, line{kind: lineFactor, factor: f})
}

func (b *explanation) note(text string) {
	b.lines = append(b.lines, line{kind: lineNote, text: text})
}

type factorStyle struct {
	marker string
	phrase string
}

var (
	loanStyles = map[Impact]factorStyle{
		ImpactPositive: {"✓", "This worked in your favor."},
		ImpactNegative: {"✗", "This was a concern."},
		ImpactNeutral:  {"○", "Neutral impact."},
	}
	fraudConcern = factorStyle{"⚠️", "Unusual pattern detected."}
	fraudNormal  = factorStyle{"✓", "Normal pattern."}
)

const (
	loanHeader  = "Here are the key factors that influenced this decision:\n\n"
	fraudHeader = "Our AI detected the following patterns:\n\n"
)

var intros = map[Result]string{
	ResultApproved:   "Your loan application has been approved based on our AI assessment. ",
	ResultRejected:   "Your loan application was not approved at this time. ",
	ResultNormal:     "This transaction appears normal and within your typical spending patterns. ",
	ResultSuspicious: "This transaction has been flagged as potentially suspicious. ",
	ResultHighRisk:   "This transaction has been flagged as high risk and requires immediate attention. ",
}

func (b *explanation) render(kind Kind) string {
	var sb strings.Builder
	for _, l := range b.lines {
		switch l.kind {
		case lineIntro:
			sb.WriteString(l.text)
			if kind == KindLoan {
				sb.WriteString(loanHeader)
			} else {
				sb.WriteString(fraudHeader)
			}
		case lineFactor:
			style := styleFor(kind, l.factor.Impact)
			sb.WriteString(style.marker + " " + l.factor.Name + ": " + l.factor.Value.String() + " - " + style.phrase + "\n")
		case lineNote:
			sb.WriteString("\n" + l.text)
		}
	}
	return sb.String()
}

func styleFor(kind Kind, impact Impact) factorStyle {
	if kind == KindFraud {
		if impact == ImpactNegative {
			return fraudConcern
		}
		return fraudNormal
	}
	if s, ok := loanStyles[impact]; ok {
		return s
	}
	return loanStyles[ImpactNeutral]
}

// GenerateExplanation renders the narrative for a decision. It depends only on
// its arguments, so equal inputs give byte-identical output.
func GenerateExplanation(kind Kind, result Result, factors []Factor, consent consentmodels.Snapshot) string {
	var b explanation
	intro, ok := intros[result]
	if !ok {
		// Unknown results fall back to the unfavourable intro for the kind.
		if kind == KindLoan {
			intro = intros[ResultRejected]
		} else {
			intro = intros[ResultHighRisk]
		}
	}
	b.intro(intro)
	for _, f := range factors {
		b.factor(f)
	}

	switch kind {
	case KindLoan:
		var withheld []string
		if !consent.Income {
			withheld = append(withheld, "income")
		}
		if !consent.BehavioralData {
			withheld = append(withheld, "behavioral data")
		}
		if len(withheld) > 0 {
			b.note("⚠️ Note: You've restricted access to " + strings.Join(withheld, ", ") +
				". Providing this data may improve your approval chances.")
		}
	case KindFraud:
		if result != ResultNormal {
			b.note("💡 If you recognize this transaction, you can mark it as legitimate in your dashboard.")
		}
	}
	return b.render(kind)
}
