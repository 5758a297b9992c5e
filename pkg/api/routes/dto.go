package routes

import (
	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/transit"
	"github.com/liip/sheriff"
)

// RouteDTO is the API view of a route. Search results only carry the basic group.
type RouteDTO struct {
	Key           string              `json:"key" groups:"basic"`
	RouteNumber   string              `json:"routeNumber" groups:"basic"`
	Co            []string            `json:"co" groups:"basic"`
	Bound         map[string]string   `json:"bound" groups:"basic"`
	Orig          map[string]string   `json:"orig" groups:"basic"`
	Dest          map[string]string   `json:"dest" groups:"basic"`
	JointOperated bool                `json:"jointOperated" groups:"basic"`
	ServiceType   string              `json:"serviceType" groups:"detailed"`
	NlbID         string              `json:"nlbId,omitempty" groups:"detailed"`
	GMBRegion     string              `json:"gmbRegion,omitempty" groups:"detailed"`
	Stops         map[string][]string `json:"stops" groups:"detailed"`
}

type SearchResultDTO struct {
	Route    RouteDTO          `json:"route" groups:"basic"`
	Co       string            `json:"co" groups:"basic"`
	StopID   string            `json:"stopId,omitempty" groups:"basic"`
	StopName map[string]string `json:"stopName,omitempty" groups:"basic"`
	Distance float64           `json:"distance,omitempty" groups:"basic"`
}

type StopDTO struct {
	StopID      string            `json:"stopId"`
	Name        map[string]string `json:"name"`
	Lat         float64           `json:"lat"`
	Lng         float64           `json:"lng"`
	ServiceType int               `json:"serviceType"`
	BranchIDs   []int             `json:"branchIds"`
}

func bilingual(text transit.BilingualText) map[string]string {
	return map[string]string{
		string(transit.LanguageChinese): text.Zh,
		string(transit.LanguageEnglish): text.En,
	}
}

func newRouteDTO(key string, route *transit.Route) RouteDTO {
	dto := RouteDTO{
		Key:           key,
		RouteNumber:   route.RouteNumber,
		Bound:         map[string]string{},
		Orig:          bilingual(route.Orig),
		Dest:          bilingual(route.Dest),
		JointOperated: route.KmbCtbJoint,
		ServiceType:   route.ServiceType.String(),
		NlbID:         route.NlbID.String(),
		GMBRegion:     string(route.GMBRegion),
		Stops:         map[string][]string{},
	}
	for _, co := range route.Co {
		dto.Co = append(dto.Co, string(co))
	}
	for co, bound := range route.Bound {
		dto.Bound[string(co)] = bound
	}
	for co, stops := range route.Stops {
		dto.Stops[string(co)] = stops
	}
	return dto
}

func newSearchResultDTO(entry transit.RouteSearchResultEntry) SearchResultDTO {
	dto := SearchResultDTO{
		Route: newRouteDTO(entry.RouteKey, entry.Route),
		Co:    string(entry.Co),
	}
	if entry.StopInfo != nil {
		dto.StopID = entry.StopInfo.StopID
		dto.Distance = entry.StopInfo.Distance
		if entry.StopInfo.Data != nil {
			dto.StopName = bilingual(entry.StopInfo.Data.Name)
		}
	}
	return dto
}

func newStopDTO(stop transit.StopData) StopDTO {
	dto := StopDTO{
		StopID:      stop.StopID,
		ServiceType: stop.ServiceType,
		BranchIDs:   stop.BranchIDs,
	}
	if stop.Stop != nil {
		dto.Name = bilingual(stop.Stop.Name)
		dto.Lat = stop.Stop.Location.Lat
		dto.Lng = stop.Stop.Location.Lng
	}
	return dto
}

func reduce(value interface{}, groups ...string) (interface{}, error) {
	return sheriff.Marshal(&sheriff.Options{Groups: groups}, value)
}
