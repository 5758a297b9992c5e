package kmb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/query"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/rs/zerolog/log"
)

const StopETAURL = "https://data.etabus.gov.hk/v1/transport/kmb/stop-eta/%s"

type Source struct {
	Fetcher httpclient.Fetcher
	URL     string
}

func New(fetcher httpclient.Fetcher) Source {
	return Source{Fetcher: fetcher, URL: StopETAURL}
}

func (s Source) GetName() string {
	return "KMB"
}

func (s Source) Supports() []transit.Operator {
	return []transit.Operator{transit.OperatorKMB}
}

type Arrival struct {
	Co     string `json:"co"`
	Route  string `json:"route"`
	Dir    string `json:"dir"`
	Seq    int    `json:"seq"`
	EtaSeq int    `json:"eta_seq"`
	Eta    string `json:"eta"`
	RmkTc  string `json:"rmk_tc"`
	RmkEn  string `json:"rmk_en"`
}

// Time is the predicted arrival, absent when the feed only carries a remark
func (a Arrival) Time() (time.Time, bool) {
	if a.Eta == "" || strings.EqualFold(a.Eta, "null") {
		return time.Time{}, false
	}
	eta, err := time.Parse(time.RFC3339, a.Eta)
	if err != nil {
		return time.Time{}, false
	}
	return eta, true
}

func (a Arrival) Remark(language transit.Language) string {
	if language == transit.LanguageEnglish {
		return a.RmkEn
	}
	return source.ReplaceRemark(a.RmkTc)
}

// Matches reports whether the arrival belongs to route in its KMB direction
func (a Arrival) Matches(route *transit.Route) bool {
	return a.Co == transit.OperatorKMB.Name() && a.Route == route.RouteNumber && a.Dir == route.Bound[transit.OperatorKMB]
}

type stopETAResponse struct {
	Data []json.RawMessage `json:"data"`
}

// Arrivals fetches every prediction at stopID. Records that fail to decode are skipped.
func (s Source) Arrivals(ctx context.Context, stopID string) ([]Arrival, error) {
	response, err := httpclient.GetJSON[stopETAResponse](ctx, s.Fetcher, fmt.Sprintf(s.URL, stopID))
	if err != nil {
		return nil, err
	}

	arrivals := make([]Arrival, 0, len(response.Data))
	for _, record := range response.Data {
		var arrival Arrival
		if err := json.Unmarshal(record, &arrival); err != nil {
			log.Debug().Err(err).Str("stop", stopID).Msg("Skipping unreadable KMB arrival")
			continue
		}
		arrivals = append(arrivals, arrival)
	}
	return arrivals, nil
}

// MatchingSequence is the stop sequence of route nearest stopIndex among the arrivals
func MatchingSequence(arrivals []Arrival, route *transit.Route, stopIndex int) int {
	var sequences []int
	for _, arrival := range arrivals {
		if arrival.Matches(route) {
			sequences = append(sequences, arrival.Seq)
		}
	}
	return source.NearestSequence(sequences, stopIndex)
}

func IsSuspended(message transit.FormattedText) bool {
	text := message.String()
	return text == "ETA service suspended" || text == "暫停預報"
}

func (s Source) Lookup(ctx context.Context, q query.ETA) (*transit.ETAQueryResult, error) {
	arrivals, err := s.Arrivals(ctx, q.StopID)
	if err != nil {
		return nil, err
	}

	builder := source.NewBuilder(q, q.Typhoon.IsAboveTyphoonSignalEight)
	matchingSeq := MatchingSequence(arrivals, q.Route, q.StopIndex)
	usedEtaSeq := map[int]bool{}

	for _, arrival := range arrivals {
		if !arrival.Matches(q.Route) || arrival.Seq != matchingSeq || usedEtaSeq[arrival.EtaSeq] {
			continue
		}
		usedEtaSeq[arrival.EtaSeq] = true

		minutes := source.MissingMinutes
		if eta, ok := arrival.Time(); ok {
			minutes = source.Minutes(eta, q.Now)
		}
		minutesRounded := source.Round(minutes)

		message := source.MinutesText(q.Language, minutesRounded)
		message = source.AppendRemark(message, arrival.Remark(q.Language))

		if q.Typhoon.IsAboveTyphoonSignalEight && IsSuspended(message) {
			if builder.Rank() == 0 {
				builder.Add(transit.NewETALine(source.NoScheduledDeparture(message, q.Language, q.Typhoon), source.ShortText(q.Language, minutesRounded, 0), minutes, minutesRounded))
			}
			continue
		}

		builder.AddBusArrival(message, minutes, minutesRounded)
	}

	return builder.Build(), nil
}
