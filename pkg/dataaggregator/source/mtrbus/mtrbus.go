package mtrbus

import (
	"context"
	"encoding/json"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/query"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/rs/zerolog/log"
)

const ScheduleURL = "https://rt.data.gov.hk/v1/transport/mtr/bus/getSchedule"

// Arrival times at or beyond this many seconds are placeholders; the departure time is used instead
const arrivalPlaceholderSeconds = 108000

type Source struct {
	Fetcher httpclient.Fetcher
	URL     string
}

func New(fetcher httpclient.Fetcher) Source {
	return Source{Fetcher: fetcher, URL: ScheduleURL}
}

func (s Source) GetName() string {
	return "MTR Bus"
}

func (s Source) Supports() []transit.Operator {
	return []transit.Operator{transit.OperatorMTRBus}
}

type scheduleRequest struct {
	Language  string `json:"language"`
	RouteName string `json:"routeName"`
}

type bus struct {
	ArrivalTimeInSecond   transit.FlexibleString `json:"arrivalTimeInSecond"`
	DepartureTimeInSecond transit.FlexibleString `json:"departureTimeInSecond"`
	BusRemark             transit.FlexibleString `json:"busRemark"`
	IsScheduled           transit.FlexibleString `json:"isScheduled"`
	IsDelayed             transit.FlexibleString `json:"isDelayed"`
}

func (b bus) seconds() int {
	seconds := b.ArrivalTimeInSecond.IntOr(0)
	if seconds >= arrivalPlaceholderSeconds {
		seconds = b.DepartureTimeInSecond.IntOr(0)
	}
	return seconds
}

func (b bus) remark(language transit.Language) string {
	var parts []string
	if remark := b.BusRemark.String(); remark != "" && !strings.EqualFold(remark, "null") {
		parts = append(parts, remark)
	}
	if b.IsScheduled == "1" {
		parts = append(parts, source.Text(language, "Scheduled Bus", "預定班次"))
	}
	if b.IsDelayed == "1" {
		parts = append(parts, source.Text(language, "Bus Delayed", "行車緩慢"))
	}
	return source.ReplaceRemark(strings.Join(parts, "/"))
}

type arrival struct {
	minutes        float64
	minutesRounded int
	message        transit.FormattedText
}

type busStop struct {
	BusStopID string            `json:"busStopId"`
	Bus       []json.RawMessage `json:"bus"`
}

type scheduleResponse struct {
	BusStop []busStop `json:"busStop"`
}

func (s Source) Lookup(ctx context.Context, q query.ETA) (*transit.ETAQueryResult, error) {
	body, err := s.Fetcher.Post(ctx, s.URL, scheduleRequest{Language: string(q.Language), RouteName: q.Route.RouteNumber})
	if err != nil {
		return nil, err
	}

	var response scheduleResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, err
	}

	aliases := q.Engine.Index.MtrBusStopAlias(q.StopID)
	if len(aliases) == 0 {
		aliases = []string{q.StopID}
	}

	var arrivals []arrival
	for _, stop := range response.BusStop {
		if !slices.Contains(aliases, stop.BusStopID) {
			continue
		}
		for _, record := range stop.Bus {
			var b bus
			if err := json.Unmarshal(record, &b); err != nil {
				log.Debug().Err(err).Str("stop", stop.BusStopID).Msg("Skipping unreadable MTR bus arrival")
				continue
			}

			minutes := float64(b.seconds()) / 60.0
			minutesRounded := int(math.Floor(minutes))

			message := source.MinutesText(q.Language, minutesRounded)
			message = source.AppendRemark(message, b.remark(q.Language))

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
