package ctb

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

const RouteETAURL = "https://rt.data.gov.hk/v2/transport/citybus/eta/CTB/%s/%s"

type Source struct {
	Fetcher httpclient.Fetcher
	URL     string
}

func New(fetcher httpclient.Fetcher) Source {
	return Source{Fetcher: fetcher, URL: RouteETAURL}
}

func (s Source) GetName() string {
	return "Citybus"
}

func (s Source) Supports() []transit.Operator {
	return []transit.Operator{transit.OperatorCTB}
}

type Arrival struct {
	Co     string `json:"co"`
	Route  string `json:"route"`
	Dir    string `json:"dir"`
	Seq    int    `json:"seq"`
	EtaSeq int    `json:"eta_seq"`
	DestTc string `json:"dest_tc"`
	DestEn string `json:"dest_en"`
	Eta    string `json:"eta"`
	RmkTc  string `json:"rmk_tc"`
	RmkEn  string `json:"rmk_en"`
}

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

// Matches reports whether the arrival is for routeNumber, in bound unless the bound spans both directions
func (a Arrival) Matches(routeNumber string, bound string) bool {
	if a.Co != transit.OperatorCTB.Name() || a.Route != routeNumber {
		return false
	}
	return len(bound) > 1 || a.Dir == bound
}

type routeETAResponse struct {
	Data []json.RawMessage `json:"data"`
}

// Arrivals fetches the predictions of routeNumber at stopID. Records that fail to decode are skipped.
func (s Source) Arrivals(ctx context.Context, stopID string, routeNumber string) ([]Arrival, error) {
	response, err := httpclient.GetJSON[routeETAResponse](ctx, s.Fetcher, fmt.Sprintf(s.URL, stopID, routeNumber))
	if err != nil {
		return nil, err
	}

	arrivals := make([]Arrival, 0, len(response.Data))
	for _, record := range response.Data {
		var arrival Arrival
		if err := json.Unmarshal(record, &arrival); err != nil {
			log.Debug().Err(err).Str("stop", stopID).Msg("Skipping unreadable CTB arrival")
			continue
		}
		arrivals = append(arrivals, arrival)
	}
	return arrivals, nil
}

func (s Source) Lookup(ctx context.Context, q query.ETA) (*transit.ETAQueryResult, error) {
	routeNumber := q.Route.RouteNumber
	bound := q.Route.Bound[transit.OperatorCTB]

	arrivals, err := s.Arrivals(ctx, q.StopID, routeNumber)
	if err != nil {
		return nil, err
	}

	var sequences []int
	for _, arrival := range arrivals {
		if arrival.Matches(routeNumber, bound) {
			sequences = append(sequences, arrival.Seq)
		}
	}
	matchingSeq := source.NearestSequence(sequences, q.StopIndex)

	builder := source.NewBuilder(q, q.Typhoon.IsAboveTyphoonSignalEight)
	usedEtaSeq := map[int]bool{}

	for _, arrival := range arrivals {
		if !arrival.Matches(routeNumber, bound) || arrival.Seq != matchingSeq || usedEtaSeq[arrival.EtaSeq] {
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

		builder.AddBusArrival(message, minutes, minutesRounded)
	}

	return builder.Build(), nil
}
