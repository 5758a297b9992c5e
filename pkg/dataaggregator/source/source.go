// Package source holds what the operator ETA sources share: the text rules every operator renders
// arrivals with, and the result builder.
package source

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/query"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
)

// UnsupportedSourceError tells the aggregator to try the next registered source
var UnsupportedSourceError = errors.New("unsupported source")

const TyphoonColour uint32 = 0xFF88A3D1

// MissingMinutes marks a prediction without a timestamp
const MissingMinutes = -999.0

var leadingNumberRegex = regexp.MustCompile("^[0-9]+")

var remarkReplacer = strings.NewReplacer("原定", "預定", "最後班次", "尾班車")

func Text(language transit.Language, en string, zh string) string {
	if language == transit.LanguageEnglish {
		return en
	}
	return zh
}

// Minutes from now until eta, at second precision
func Minutes(eta time.Time, now time.Time) float64 {
	return float64(eta.Unix()-now.Unix()) / 60.0
}

// Round rounds half up
func Round(minutes float64) int {
	return int(math.Floor(minutes + 0.5))
}

// ReplaceRemark unifies operator wording for schedules and last buses
func ReplaceRemark(remark string) string {
	remark = remarkReplacer.Replace(remark)
	return strings.ReplaceAll(remark, "尾班車已過", "尾班車已過本站")
}

// MinutesText renders a rounded prediction, "-" while arriving and nothing once stale
func MinutesText(language transit.Language, minutesRounded int) transit.FormattedText {
	unit := transit.TextSegment{Text: Text(language, " Min.", " 分鐘"), Small: true}
	if minutesRounded > 0 {
		return transit.FormattedText{{Text: strconv.Itoa(minutesRounded), Bold: true}, unit}
	}
	if minutesRounded > -60 {
		return transit.FormattedText{{Text: "-", Bold: true}, unit}
	}
	return nil
}

// AppendRemark adds remark on its own when message is empty, else as a small bracketed suffix
func AppendRemark(message transit.FormattedText, remark string) transit.FormattedText {
	if remark == "" {
		return message
	}
	if message.IsEmpty() {
		return message.Append(transit.TextSegment{Text: remark})
	}
	return message.Append(transit.TextSegment{Text: " (" + remark + ")", Small: true})
}

// NoScheduledDeparture is the text shown in place of arrivals, flagged with the warning title while signal 8 or above is in force
func NoScheduledDeparture(alternative transit.FormattedText, language transit.Language, typhoon transit.TyphoonInfo) transit.FormattedText {
	message := alternative
	if message.IsEmpty() {
		message = transit.PlainText(Text(language, "No scheduled departures at this moment", "暫時沒有預定班次"))
	}
	if typhoon.IsAboveTyphoonSignalEight {
		message = message.Append(transit.TextSegment{Text: " (" + typhoon.TyphoonWarningTitle + ")"})
		message = message.WithColour(TyphoonColour)
	}
	return message
}

func ShortText(language transit.Language, minutesRounded int, arrivingThreshold int) [2]string {
	first := strconv.Itoa(minutesRounded)
	if minutesRounded <= arrivingThreshold {
		first = "-"
	}
	return [2]string{first, Text(language, "Min.", "分鐘")}
}

// CircledNumber renders platform numbers as filled circled digits
func CircledNumber(n int) string {
	switch {
	case n == 0:
		return "\U0001F10C"
	case n >= 1 && n <= 10:
		return string(rune(0x2776 + n - 1))
	case n >= 11 && n <= 20:
		return string(rune(0x24EB + n - 11))
	}
	return strconv.Itoa(n)
}

func ConnectionError(restriction transit.BackgroundRestriction, co transit.Operator, language transit.Language, now time.Time) *transit.ETAQueryResult {
	restricted := transit.TextLine(transit.PlainText(Text(language, "Background Internet Restricted", "背景網絡存取被限制")))

	var lines map[int]transit.ETALine
	switch restriction {
	case transit.BackgroundRestrictionPowerSaveMode:
		lines = map[int]transit.ETALine{1: restricted, 2: transit.TextLine(transit.PlainText(Text(language, "Power Saving", "省電模式")))}
	case transit.BackgroundRestrictionRestrictStatus:
		lines = map[int]transit.ETALine{1: restricted, 2: transit.TextLine(transit.PlainText(Text(language, "Data Saver", "數據節省器")))}
	case transit.BackgroundRestrictionLowPowerStandby:
		lines = map[int]transit.ETALine{1: restricted, 2: transit.TextLine(transit.PlainText(Text(language, "Low Power Standby", "低耗電待機")))}
	default:
		lines = map[int]transit.ETALine{1: transit.TextLine(transit.PlainText(Text(language, "Unable to Connect", "無法連接伺服器")))}
	}

	return &transit.ETAQueryResult{
		ResponseTime:      now.UnixMilli(),
		IsConnectionError: true,
		NextCo:            co,
		Lines:             lines,
	}
}

// Builder collects ranked lines. Rank 1 starts as the no scheduled departure message.
type Builder struct {
	Query  query.ETA
	result *transit.ETAQueryResult
	rank   int
}

func NewBuilder(q query.ETA, isTyphoonSchedule bool) *Builder {
	return &Builder{
		Query: q,
		result: &transit.ETAQueryResult{
			ResponseTime:      q.Now.UnixMilli(),
			IsTyphoonSchedule: isTyphoonSchedule,
			NextCo:            q.Co,
			Lines: map[int]transit.ETALine{
				1: transit.TextLine(NoScheduledDeparture(nil, q.Language, q.Typhoon)),
			},
		},
	}
}

// Add appends a line at the next rank and returns that rank
func (b *Builder) Add(line transit.ETALine) int {
	b.rank++
	b.result.Lines[b.rank] = line
	return b.rank
}

func (b *Builder) Rank() int {
	return b.rank
}

// AddBusArrival ranks a bus prediction. Predictions with neither minutes nor a remark to show are dropped.
func (b *Builder) AddBusArrival(message transit.FormattedText, minutes float64, minutesRounded int) {
	if message.IsEmpty() {
		return
	}
	b.Add(transit.NewETALine(message, ShortText(b.Query.Language, minutesRounded, 0), minutes, minutesRounded))
}

// SetText replaces the first line with a message
func (b *Builder) SetText(text transit.FormattedText) {
	b.result.Lines[1] = transit.TextLine(text)
}

func (b *Builder) SetEndOfLine() {
	b.result.IsMtrEndOfLine = true
	b.SetText(transit.PlainText(Text(b.Query.Language, "End of Line", "終點站")))
}

func (b *Builder) SetNextCo(co transit.Operator) {
	b.result.NextCo = co
}

func (b *Builder) Build() *transit.ETAQueryResult {
	return b.result
}

// NearestSequence picks the stop sequence closest to the requested stop index, preferring the lower on ties.
// It returns -1 when there are none.
func NearestSequence(sequences []int, stopIndex int) int {
	nearest := -1
	nearestDistance := math.MaxInt
	for _, sequence := range sequences {
		distance := sequence - stopIndex
		if distance < 0 {
			distance = -distance
		}
		if distance < nearestDistance || (distance == nearestDistance && sequence < nearest) {
			nearest = sequence
			nearestDistance = distance
		}
	}
	return nearest
}

func LastTrainDeparted(language transit.Language) transit.FormattedText {
	return transit.PlainText(Text(language, "Last train has departed", "尾班車已開出"))
}

func ServiceNotStarted(language transit.Language) transit.FormattedText {
	return transit.PlainText(Text(language, "Service has not yet started", "今日服務尚未開始"))
}

func ServerUnavailable(language transit.Language) transit.FormattedText {
	return transit.PlainText(Text(language, "Server unable to provide data", "系統未能提供資訊"))
}

// NoTrains explains an empty rail schedule by the Hong Kong hour
func NoTrains(language transit.Language, hour int) transit.FormattedText {
	switch {
	case hour < 3:
		return LastTrainDeparted(language)
	case hour < 6:
		return ServiceNotStarted(language)
	}
	return ServerUnavailable(language)
}

// RailMinutesText renders bold arrival wording, or minutes with a unit when the text leads with a number
func RailMinutesText(language transit.Language, text string) transit.FormattedText {
	switch text {
	case "Arriving", "即將抵達", "Departing", "正在離開":
		return transit.FormattedText{{Text: text, Bold: true}}
	}
	if match := leadingNumberRegex.FindString(text); match != "" {
		return transit.FormattedText{{Text: match, Bold: true}, {Text: Text(language, " Min.", " 分鐘"), Small: true}}
	}
	return transit.FormattedText{{Text: text, Bold: true}}
}
