// Package alerting implements the rate-intelligence alert rule model:
// the draft session used while a rule is being configured, validation,
// submission shaping, and compilation of stored rules into display rows.
package alerting

// Alert types discriminate the three kinds of monitoring rules.
const (
	TypeADR    = "ADR"
	TypeParity = "Parity"
	TypeRank   = "OTA Ranking"
)

// Subjects identify whose rate a rule watches.
const (
	SubjectSubscriber = "Subscriber"
	SubjectCompetitor = "Competitor"
	SubjectAvgCompset = "Avg. Compset"
)

// Comparison rules for ADR and ranking alerts.
const (
	RuleIncreased = "Increased"
	RuleDecreased = "Decreased"
	RuleCrossed   = "Crossed"
)

// Value modes select absolute versus percentage thresholds.
const (
	ValueAbsolute   = "Absolute"
	ValuePercentage = "Percentage"
)

// Parity sub-options. Exactly one is authoritative per parity rule.
const (
	// ParityOptionChannel watches a parity status (Wins/Losses/...) on a
	// chosen set of channels. Threshold is forced to zero.
	ParityOptionChannel = 1
	// ParityOptionScore watches the parity score against a threshold.
	ParityOptionScore = 2
	// ParityOptionMovement watches parity score movement.
	ParityOptionMovement = 3
)

// Glyphs used in compiled rule sentences.
const (
	glyphBelow = "< "
	glyphAbove = "> "
)

// fallbackCreator labels rows whose source record has no creator.
const fallbackCreator = "Current User"

// shortDateLayout is the display format for created-on dates.
const shortDateLayout = "1/2/2006"
