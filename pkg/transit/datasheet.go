package transit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
)

// StopMapEntry is an alternative (operator, stop id) pair for a stop
type StopMapEntry [2]string

func (s StopMapEntry) Operator() Operator {
	return Operator(s[0])
}

func (s StopMapEntry) StopID() string {
	return s[1]
}

type DataSheet struct {
	Holidays      []string                  `json:"holidays"`
	RouteList     map[string]*Route         `json:"routeList"`
	StopList      map[string]*Stop          `json:"stopList"`
	StopMap       map[string][]StopMapEntry `json:"stopMap"`
	ServiceDayMap map[string][]string       `json:"serviceDayMap,omitempty"`
}

type DataContainer struct {
	DataSheet       DataSheet                  `json:"dataSheet"`
	MtrBusStopAlias map[string][]string        `json:"mtrBusStopAlias"`
	KMBSubsidiary   map[KMBSubsidiary][]string `json:"kmbSubsidiary"`
	LrtData         json.RawMessage            `json:"lrtData,omitempty"`
	MtrData         json.RawMessage            `json:"mtrData,omitempty"`
	UpdatedTime     int64                      `json:"updatedTime"`
}

// DecodeDataContainer parses the published dataset document
func DecodeDataContainer(data []byte) (*DataContainer, error) {
	var container DataContainer
	if err := json.Unmarshal(data, &container); err != nil {
		return nil, err
	}

	if container.DataSheet.RouteList == nil {
		container.DataSheet.RouteList = map[string]*Route{}
	}
	if container.DataSheet.StopList == nil {
		container.DataSheet.StopList = map[string]*Stop{}
	}
	if container.DataSheet.StopMap == nil {
		container.DataSheet.StopMap = map[string][]StopMapEntry{}
	}

	return &container, nil
}

// HolidayDates normalises the holiday list to yyyyMMdd keys, accepting yyyy-MM-dd as well
func (d *DataSheet) HolidayDates() map[string]bool {
	dates := make(map[string]bool, len(d.Holidays))
	for _, holiday := range d.Holidays {
		if parsed, err := time.Parse("2006-01-02", holiday); err == nil {
			dates[parsed.Format("20060102")] = true
			continue
		}
		dates[strings.TrimSpace(holiday)] = true
	}
	return dates
}

func IsHoliday(holidays map[string]bool, t time.Time) bool {
	hongKongTime := util.HongKongTime(t)
	weekday := hongKongTime.Weekday()
	if weekday == time.Saturday || weekday == time.Sunday {
		return true
	}
	return holidays[util.DateKey(hongKongTime)]
}
