package transit

type BackgroundRestriction string

const (
	BackgroundRestrictionNone            BackgroundRestriction = "NONE"
	BackgroundRestrictionPowerSaveMode   BackgroundRestriction = "POWER_SAVE_MODE"
	BackgroundRestrictionRestrictStatus  BackgroundRestriction = "RESTRICT_BACKGROUND_STATUS"
	BackgroundRestrictionLowPowerStandby BackgroundRestriction = "LOW_POWER_STANDBY"
)

type ETALine struct {
	Text       FormattedText `json:"text"`
	ShortText  [2]string     `json:"shortText"`
	Eta        float64       `json:"eta"`
	EtaRounded int           `json:"etaRounded"`
}

// NewETALine builds a timed line, marking predictions an hour or more in the past as stale
func NewETALine(text FormattedText, shortText [2]string, eta float64, etaRounded int) ETALine {
	if etaRounded > -60 {
		return ETALine{Text: text, ShortText: shortText, Eta: max(0, eta), EtaRounded: max(0, etaRounded)}
	}
	return ETALine{Text: text, ShortText: shortText, Eta: -1, EtaRounded: -1}
}

func TextLine(text FormattedText) ETALine {
	return ETALine{Text: text, Eta: -1, EtaRounded: -1}
}

var EmptyETALine = TextLine(PlainText("-"))

type ETAQueryResult struct {
	ResponseTime      int64           `json:"responseTime"`
	IsConnectionError bool            `json:"isConnectionError"`
	IsMtrEndOfLine    bool            `json:"isMtrEndOfLine"`
	IsTyphoonSchedule bool            `json:"isTyphoonSchedule"`
	NextCo            Operator        `json:"nextCo"`
	Lines             map[int]ETALine `json:"lines"`
}

// NextScheduledBus is the rounded minutes of the first line, or -1
func (r *ETAQueryResult) NextScheduledBus() int {
	if line, exists := r.Lines[1]; exists {
		return line.EtaRounded
	}
	return -1
}

// Line returns the line at rank seq, starting at 1
func (r *ETAQueryResult) Line(seq int) ETALine {
	if line, exists := r.Lines[seq]; exists {
		return line
	}
	return EmptyETALine
}

func (r *ETAQueryResult) FirstLine() ETALine {
	return r.Line(1)
}
