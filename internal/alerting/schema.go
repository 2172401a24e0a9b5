package alerting

// Schema describes the full catalog of alert types, subjects, rules and
// options so form UIs are built from the server's vocabulary rather
// than hardcoding it.
type Schema struct {
	AlertTypes []AlertTypeSchema `json:"alertTypes"`
	Subjects   []ChoiceSchema    `json:"subjects"`
	Rules      []ChoiceSchema    `json:"rules"`
	ValueModes []ChoiceSchema    `json:"valueModes"`
}

// AlertTypeSchema describes one alert type tab.
type AlertTypeSchema struct {
	Name    string         `json:"name"`
	Label   string         `json:"label"`
	Options []OptionSchema `json:"options,omitempty"`
}

// OptionSchema describes a mutually exclusive sub-option within a tab.
type OptionSchema struct {
	Option int    `json:"option"`
	Label  string `json:"label"`
	// Fields names the inputs this option reads at submission time.
	Fields []string `json:"fields"`
}

// ChoiceSchema describes one enumerated choice.
type ChoiceSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// GetSchema returns the alerting vocabulary for form clients.
func GetSchema() Schema {
	return Schema{
		AlertTypes: []AlertTypeSchema{
			{Name: TypeADR, Label: "Rate (ADR)"},
			{
				Name:  TypeParity,
				Label: "Parity",
				Options: []OptionSchema{
					{Option: ParityOptionChannel, Label: "Parity status on channels", Fields: []string{"alertOn", "channels"}},
					{Option: ParityOptionScore, Label: "Parity score threshold", Fields: []string{"alertOn", "score", "scoreBy"}},
					{Option: ParityOptionMovement, Label: "Parity score movement", Fields: []string{"alertOn", "threshold"}},
				},
			},
			{Name: TypeRank, Label: "OTA Ranking"},
		},
		Subjects: []ChoiceSchema{
			{Name: SubjectSubscriber, Label: "My property"},
			{Name: SubjectCompetitor, Label: "Competitor"},
			{Name: SubjectAvgCompset, Label: "Compset average"},
		},
		Rules: []ChoiceSchema{
			{Name: RuleIncreased, Label: "Increased by"},
			{Name: RuleDecreased, Label: "Decreased by"},
			{Name: RuleCrossed, Label: "Crossed"},
		},
		ValueModes: []ChoiceSchema{
			{Name: ValueAbsolute, Label: "Absolute"},
			{Name: ValuePercentage, Label: "Percentage"},
		},
	}
}
