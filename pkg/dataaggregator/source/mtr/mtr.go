package mtr

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/query"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/dataaggregator/source"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/httpclient"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/rs/zerolog/log"
)

const ScheduleURL = "https://rt.data.gov.hk/v1/transport/mtr/getSchedule.php?line=%s&sta=%s"

const trainTimeLayout = "2006-01-02 15:04:05"

type Source struct {
	Fetcher httpclient.Fetcher
	URL     string
}

func New(fetcher httpclient.Fetcher) Source {
	return Source{Fetcher: fetcher, URL: ScheduleURL}
}

func (s Source) GetName() string {
	return "MTR"
}

func (s Source) Supports() []transit.Operator {
	return []transit.Operator{transit.OperatorMTR}
}

type train struct {
	Seq      transit.FlexibleString `json:"seq"`
	Plat     transit.FlexibleString `json:"plat"`
	Route    string                 `json:"route"`
	Dest     string                 `json:"dest"`
	TimeType string                 `json:"timeType"`
	Time     string                 `json:"time"`
}

type scheduleResponse struct {
	Status  int                        `json:"status"`
	IsDelay string                     `json:"isdelay"`
	Data    map[string]json.RawMessage `json:"data"`
}

// noTrains explains a station without listed trains
func noTrains(stopID string, language transit.Language, now time.Time) transit.FormattedText {
	hongKongTime := util.HongKongTime(now)
	hour := hongKongTime.Hour()

	if stopID == "RAC" {
		raceDay := hongKongTime.Weekday() == time.Wednesday || hongKongTime.Weekday() == time.Sunday
		switch {
		case !raceDay:
			return transit.PlainText(source.Text(language, "Service on race days only", "僅在賽馬日提供服務"))
		case hour >= 15 || hour < 3:
			return source.LastTrainDeparted(language)
		}
		return source.ServiceNotStarted(language)
	}

	if hour < 3 || (stopID == "LMC" && hour >= 10) || (stopID == "SHS" && hour >= 11) {
		return source.LastTrainDeparted(language)
	}
	return source.NoTrains(language, hour)
}

func (s Source) stationName(q query.ETA, stopID string) string {
	if stop, exists := q.Engine.Index.Stop(stopID); exists {
		return stop.Name.Get(q.Language)
	}
	return stopID
}

func minutesText(language transit.Language, now time.Time, minutesRounded int, timeType string) transit.FormattedText {
	switch {
	case minutesRounded > 59:
		departure := util.HongKongTime(now).Add(time.Duration(minutesRounded) * time.Minute)
		return transit.FormattedText{{Text: departure.Format("15:04"), Bold: true}}
	case minutesRounded > 1:
		return source.MinutesText(language, minutesRounded)
	case minutesRounded == 1 && timeType != "D":
		return transit.FormattedText{{Text: source.Text(language, "Arriving", "即將抵達"), Bold: true}}
	}
	return transit.FormattedText{{Text: source.Text(language, "Departing", "正在離開"), Bold: true}}
}

func (s Source) Lookup(ctx context.Context, q query.ETA) (*transit.ETAQueryResult, error) {
	builder := source.NewBuilder(q, q.Typhoon.IsAboveTyphoonSignalNine)

	line := q.Route.RouteNumber
	bound := q.Route.Bound[transit.OperatorMTR]

	if q.Engine.IsMtrStopEndOfLine(q.StopID, line, bound) {
		builder.SetEndOfLine()
		return builder.Build(), nil
	}

	response, err := httpclient.GetJSON[scheduleResponse](ctx, s.Fetcher, fmt.Sprintf(s.URL, line, q.StopID))
	if err != nil {
		return nil, err
	}
	if response.Status == 0 {
		builder.SetText(source.ServerUnavailable(q.Language))
		return builder.Build(), nil
	}

	direction := "DOWN"
	if strings.HasSuffix(bound, "UT") {
		direction = "UP"
	}

	var trains []json.RawMessage
	if station, exists := response.Data[line+"-"+q.StopID]; exists {
		var directions map[string]json.RawMessage
		if err := json.Unmarshal(station, &directions); err != nil {
			log.Debug().Err(err).Str("station", q.StopID).Msg("Skipping unreadable MTR station schedule")
		} else if raw, exists := directions[direction]; exists {
			if err := json.Unmarshal(raw, &trains); err != nil {
				log.Debug().Err(err).Str("station", q.StopID).Str("direction", direction).Msg("Skipping unreadable MTR train list")
			}
		}
	}

	if len(trains) == 0 {
		builder.SetText(noTrains(q.StopID, q.Language, q.Now))
		return builder.Build(), nil
	}

	delayed := response.IsDelay != "" && response.IsDelay != "N"
	lineColour := transit.MTRLineColour(line)

	parsed := make([]train, 0, len(trains))
	for _, record := range trains {
		var t train
		if err := json.Unmarshal(record, &t); err != nil {
			log.Debug().Err(err).Str("stop", q.StopID).Msg("Skipping unreadable MTR train")
			continue
		}
		parsed = append(parsed, t)
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].Seq.IntOr(0) < parsed[j].Seq.IntOr(0)
	})

	for _, t := range parsed {
		eta, err := util.ParseHongKongLocal(trainTimeLayout, t.Time)
		if err != nil {
			log.Debug().Err(err).Str("stop", q.StopID).Msg("Skipping MTR train with unreadable time")
			continue
		}
		minutes := float64(eta.UnixMilli()-q.Now.UnixMilli()) / 60000.0
		minutesRounded := source.Round(minutes)

		destination := s.stationName(q, t.Dest)
		if q.StopID != "AIR" {
			switch destination {
			case "博覽館":
				destination = "機場及博覽館"
			case "AsiaWorld-Expo":
				destination = "Airport & AsiaWorld-Expo"
			}
		}

		message := transit.FormattedText{
			{Text: source.CircledNumber(t.Plat.IntOr(0)), Colour: lineColour},
			{Text: " "},
			{Text: destination},
		}
		if t.Route != "" && !q.Engine.IsMtrStopOnOrAfter(q.StopID, t.Route, line, bound) {
			message = message.Append(transit.TextSegment{Text: source.Text(q.Language, " via ", " 經") + s.stationName(q, t.Route), Small: true})
		}
		message = message.Append(transit.TextSegment{Text: " "})
		message = message.Append(minutesText(q.Language, q.Now, minutesRounded, t.TimeType)...)

		if t.Seq.IntOr(0) == 1 && delayed {
			message = message.Append(transit.TextSegment{Text: source.Text(q.Language, " (Delayed)", " (服務延誤)"), Small: true})
		}

		builder.Add(transit.NewETALine(message, source.ShortText(q.Language, minutesRounded, 1), minutes, minutesRounded))
	}

	return builder.Build(), nil
}
