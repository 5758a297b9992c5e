package gmb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/query"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/search"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/rs/zerolog/log"
)

const StopETAURL = "https://data.etagmb.gov.hk/eta/stop/%s"

type Source struct {
	Fetcher httpclient.Fetcher
	URL     string
}

func New(fetcher httpclient.Fetcher) Source {
	return Source{Fetcher: fetcher, URL: StopETAURL}
}

func (s Source) GetName() string {
	return "Green Minibus"
}

func (s Source) Supports() []transit.Operator {
	return []transit.Operator{transit.OperatorGMB}
}

type eta struct {
	Timestamp string `json:"timestamp"`
	RemarksEn string `json:"remarks_en"`
	RemarksTc string `json:"remarks_tc"`
}

func (e eta) remark(language transit.Language) string {
	remark := e.RemarksTc
	if language == transit.LanguageEnglish {
		remark = e.RemarksEn
	}
	if remark == "null" {
		return ""
	}
	return remark
}

type routeETA struct {
	RouteID transit.FlexibleString `json:"route_id"`
	StopSeq int                    `json:"stop_seq"`
	ETA     []json.RawMessage      `json:"eta"`
}

type stopETAResponse struct {
	Data []json.RawMessage `json:"data"`
}

type arrival struct {
	minutes        float64
	minutesRounded int
	message        transit.FormattedText
}

// routeNumberOf resolves a GMB route id to the route number of the first matching route
func routeNumberOf(engine *search.Engine, routeID string) (string, bool) {
	var routeNumber string
	found := false
	engine.Index.EachRoute(func(key string, route *transit.Route) bool {
		if route.HasBound(transit.OperatorGMB) && route.GtfsID.String() == routeID {
			routeNumber = route.RouteNumber
			found = true
			return false
		}
		return true
	})
	return routeNumber, found
}

func (s Source) Lookup(ctx context.Context, q query.ETA) (*transit.ETAQueryResult, error) {
	response, err := httpclient.GetJSON[stopETAResponse](ctx, s.Fetcher, fmt.Sprintf(s.URL, q.StopID))
	if err != nil {
		return nil, err
	}

	routeNumbers := map[string]string{}
	var matching []routeETA
	for _, record := range response.Data {
		var entry routeETA
		if err := json.Unmarshal(record, &entry); err != nil {
			log.Debug().Err(err).Str("stop", q.StopID).Msg("Skipping unreadable GMB route")
			continue
		}

		routeID := entry.RouteID.String()
		routeNumber, resolved := routeNumbers[routeID]
		if !resolved {
			routeNumber, _ = routeNumberOf(q.Engine, routeID)
			routeNumbers[routeID] = routeNumber
		}
		if routeNumber == q.Route.RouteNumber {
			matching = append(matching, entry)
		}
	}

	if len(matching) > 1 {
		sequences := make([]int, len(matching))
		for i, entry := range matching {
			sequences[i] = entry.StopSeq
		}
		nearest := source.NearestSequence(sequences, q.StopIndex)
		kept := matching[:0]
		for _, entry := range matching {
			if entry.StopSeq == nearest {
				kept = append(kept, entry)
			}
		}
		matching = kept
	}

	var arrivals []arrival
	for _, entry := range matching {
		for _, record := range entry.ETA {
			var e eta
			if err := json.Unmarshal(record, &e); err != nil {
				log.Debug().Err(err).Str("stop", q.StopID).Msg("Skipping unreadable GMB arrival")
				continue
			}

			minutes := source.MissingMinutes
			if timestamp, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
				minutes = source.Minutes(timestamp, q.Now)
			}
			minutesRounded := source.Round(minutes)

			message := source.MinutesText(q.Language, minutesRounded)
			message = source.AppendRemark(message, e.remark(q.Language))

			arrivals = append(arrivals, arrival{minutes: minutes, minutesRounded: minutesRounded, message: message})
		}
	}

	sort.SliceStable(arrivals, func(i, j int) bool {
		return arrivals[i].minutes < arrivals[j].minutes
	})

	builder := source.NewBuilder(q, q.Typhoon.IsAboveTyphoonSignalEight)
	for _, a := range arrivals {
		builder.AddBusArrival(a.message, a.minutes, a.minutesRounded)
	}

	return builder.Build(), nil
}
