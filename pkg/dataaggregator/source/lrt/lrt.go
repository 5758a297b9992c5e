package lrt

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/query"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/rs/zerolog/log"
)

const ScheduleURL = "https://rt.data.gov.hk/v1/transport/mtr/lrt/getSchedule?station_id=%s"

const (
	TrainImage      = "lrv"
	EmptyTrainImage = "lrv_empty"
)

var minutesRegex = regexp.MustCompile("([0-9]+) *min")

type Source struct {
	Fetcher httpclient.Fetcher
	URL     string
}

func New(fetcher httpclient.Fetcher) Source {
	return Source{Fetcher: fetcher, URL: ScheduleURL}
}

func (s Source) GetName() string {
	return "Light Rail"
}

func (s Source) Supports() []transit.Operator {
	return []transit.Operator{transit.OperatorLRT}
}

type routeEntry struct {
	RouteNo     string `json:"route_no"`
	DestCh      string `json:"dest_ch"`
	DestEn      string `json:"dest_en"`
	TimeEn      string `json:"time_en"`
	TimeCh      string `json:"time_ch"`
	TrainLength int    `json:"train_length"`
}

type platform struct {
	PlatformID int               `json:"platform_id"`
	RouteList  []json.RawMessage `json:"route_list"`
}

type scheduleResponse struct {
	Status       int        `json:"status"`
	PlatformList []platform `json:"platform_list"`
}

type departure struct {
	platform    int
	trainLength int
	minutes     int
	message     string
}

func (s Source) Lookup(ctx context.Context, q query.ETA) (*transit.ETAQueryResult, error) {
	builder := source.NewBuilder(q, q.Typhoon.IsAboveTyphoonSignalNine)

	stops := q.Route.Stops[transit.OperatorLRT]
	if util.IndexOf(stops, q.StopID)+1 >= len(stops) {
		builder.SetEndOfLine()
		return builder.Build(), nil
	}

	stationID := strings.TrimPrefix(q.StopID, "LR")
	response, err := httpclient.GetJSON[scheduleResponse](ctx, s.Fetcher, fmt.Sprintf(s.URL, stationID))
	if err != nil {
		return nil, err
	}

	var departures []departure
	if response.Status != 0 {
		for _, p := range response.PlatformList {
			for _, record := range p.RouteList {
				var entry routeEntry
				if err := json.Unmarshal(record, &entry); err != nil {
					log.Debug().Err(err).Str("stop", q.StopID).Msg("Skipping unreadable light rail departure")
					continue
				}
				if entry.RouteNo != q.Route.RouteNumber || !q.Engine.IsLrtStopOnOrAfter(q.StopID, entry.DestCh, q.Route) {
					continue
				}

				minutes := 0
				if match := minutesRegex.FindStringSubmatch(entry.TimeEn); match != nil {
					minutes, _ = strconv.Atoi(match[1])
				}

				departures = append(departures, departure{
					platform:    p.PlatformID,
					trainLength: entry.TrainLength,
					minutes:     minutes,
					message:     source.Text(q.Language, entry.TimeEn, entry.TimeCh),
				})
			}
		}
	}

	if len(departures) == 0 {
		builder.SetText(source.NoTrains(q.Language, util.HongKongTime(q.Now).Hour()))
		return builder.Build(), nil
	}

	sort.SliceStable(departures, func(i, j int) bool {
		if departures[i].minutes != departures[j].minutes {
			return departures[i].minutes < departures[j].minutes
		}
		return departures[i].platform < departures[j].platform
	})

	lineColour := transit.OperatorLRT.Colour(q.Route.RouteNumber, "")
	for _, d := range departures {
		minutesMessage := d.message
		if minutesMessage == "-" {
			minutesMessage = source.Text(q.Language, "Departing", "正在離開")
		}

		message := transit.FormattedText{
			{Text: source.CircledNumber(d.platform), Colour: lineColour},
			{Text: " "},
		}
		for i := 0; i < d.trainLength; i++ {
			message = message.Append(transit.TextSegment{Text: "\U0001F683", Image: TrainImage})
		}
		if d.trainLength == 1 {
			message = message.Append(transit.TextSegment{Text: " ", Image: EmptyTrainImage})
		}
		message = message.Append(transit.TextSegment{Text: " "})
		message = message.Append(source.RailMinutesText(q.Language, minutesMessage)...)

		builder.Add(transit.NewETALine(message, source.ShortText(q.Language, d.minutes, 1), float64(d.minutes), d.minutes))
	}

	return builder.Build(), nil
}
