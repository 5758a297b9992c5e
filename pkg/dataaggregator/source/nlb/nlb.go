package nlb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/query"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/rs/zerolog/log"
)

const EstimatedArrivalsURL = "https://rt.data.gov.hk/v2/transport/nlb/stop.php?action=estimatedArrivals&routeId=%s&stopId=%s&language=%s"

const arrivalTimeLayout = "2006-01-02 15:04:05"

type Source struct {
	Fetcher httpclient.Fetcher
	URL     string
}

func New(fetcher httpclient.Fetcher) Source {
	return Source{Fetcher: fetcher, URL: EstimatedArrivalsURL}
}

func (s Source) GetName() string {
	return "New Lantao Bus"
}

func (s Source) Supports() []transit.Operator {
	return []transit.Operator{transit.OperatorNLB}
}

type estimatedArrival struct {
	EstimatedArrivalTime string `json:"estimatedArrivalTime"`
	RouteVariantName     string `json:"routeVariantName"`
}

type estimatedArrivalsResponse struct {
	EstimatedArrivals []json.RawMessage `json:"estimatedArrivals"`
}

func (s Source) Lookup(ctx context.Context, q query.ETA) (*transit.ETAQueryResult, error) {
	url := fmt.Sprintf(s.URL, q.Route.NlbID.String(), q.StopID, string(q.Language))
	response, err := httpclient.GetJSON[estimatedArrivalsResponse](ctx, s.Fetcher, url)
	if err != nil {
		return nil, err
	}

	builder := source.NewBuilder(q, q.Typhoon.IsAboveTyphoonSignalEight)

	for _, record := range response.EstimatedArrivals {
		var arrival estimatedArrival
		if err := json.Unmarshal(record, &arrival); err != nil {
			log.Debug().Err(err).Str("stop", q.StopID).Msg("Skipping unreadable NLB arrival")
			continue
		}

		minutes := source.MissingMinutes
		if arrival.EstimatedArrivalTime != "" {
			eta, err := util.ParseHongKongLocal(arrivalTimeLayout, arrival.EstimatedArrivalTime)
			if err != nil {
				log.Debug().Err(err).Str("stop", q.StopID).Msg("Skipping NLB arrival with unreadable time")
				continue
			}
			minutes = source.Minutes(eta, q.Now)
		}
		minutesRounded := source.Round(minutes)

		message := source.MinutesText(q.Language, minutesRounded)
		message = source.AppendRemark(message, strings.TrimSpace(arrival.RouteVariantName))

		builder.AddBusArrival(message, minutes, minutesRounded)
	}

	return builder.Build(), nil
}
