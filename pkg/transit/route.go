package transit

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
)

// FlexibleString decodes a JSON string, number or null into a string
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexibleString(n.String())
	return nil
}

func (f FlexibleString) String() string {
	return string(f)
}

// Int parses the value, reporting whether it was numeric
func (f FlexibleString) Int() (int, bool) {
	n, err := strconv.Atoi(string(f))
	return n, err == nil
}

func (f FlexibleString) IntOr(fallback int) int {
	return util.ParseIntOr(string(f), fallback)
}

type Route struct {
	RouteNumber   string                `json:"route"`
	Bound         map[Operator]string   `json:"bound"`
	Co            []Operator            `json:"co"`
	ServiceType   FlexibleString        `json:"serviceType"`
	NlbID         FlexibleString        `json:"nlbId"`
	GtfsID        FlexibleString        `json:"gtfsId"`
	CtbIsCircular bool                  `json:"ctbIsCircular"`
	KmbCtbJoint   bool                  `json:"kmbCtbJoint"`
	GMBRegion     GMBRegion             `json:"gmbRegion,omitempty"`
	LrtCircular   *BilingualText        `json:"lrtCircular,omitempty"`
	Dest          BilingualText         `json:"dest"`
	Orig          BilingualText         `json:"orig"`
	Stops         map[Operator][]string `json:"stops"`
	Fares         []string              `json:"fares,omitempty"`
	FaresHoliday  []string              `json:"faresHoliday,omitempty"`
	Freq          json.RawMessage       `json:"freq,omitempty"`
	JourneyTime   *float64              `json:"jt,omitempty"`
}

func (r *Route) HasOperator(co Operator) bool {
	for _, operator := range r.Co {
		if operator == co {
			return true
		}
	}
	return false
}

func (r *Route) HasBound(co Operator) bool {
	_, exists := r.Bound[co]
	return exists
}

// BoundOrNlbID is the direction identifier used for co: the NLB route id for NLB, the bound otherwise
func (r *Route) BoundOrNlbID(co Operator) string {
	if co == OperatorNLB {
		return r.NlbID.String()
	}
	return r.Bound[co]
}

// SearchKey identifies a (route, operator, direction) triple
func (r *Route) SearchKey(co Operator) string {
	key := r.RouteNumber + "," + co.Name() + "," + r.BoundOrNlbID(co)
	if co == OperatorGMB {
		key += "," + string(r.GMBRegion)
	}
	return key
}

// HighestOperator is the operator with the greatest ordinal among the route's bounds
func (r *Route) HighestOperator() Operator {
	var highest Operator
	highestOrdinal := -1
	for operator := range r.Bound {
		if ordinal := operator.Ordinal(); ordinal > highestOrdinal {
			highest = operator
			highestOrdinal = ordinal
		}
	}
	return highest
}

// FirstOperator returns the first built in operator the route has a bound for
func (r *Route) FirstOperator() (Operator, bool) {
	for _, operator := range builtinOperators {
		if r.HasBound(operator) {
			return operator, true
		}
	}
	return "", false
}
