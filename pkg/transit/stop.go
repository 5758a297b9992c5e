package transit

type Stop struct {
	Location Coordinates    `json:"location"`
	Name     BilingualText  `json:"name"`
	Remark   *BilingualText `json:"remark,omitempty"`
	KmbBbiID string         `json:"kmbBbiId,omitempty"`
	MtrIDs   []string       `json:"mtrIds,omitempty"`
}

// StopData is one stop of a merged route, tagged with the branches that serve it
type StopData struct {
	StopID      string
	ServiceType int
	Stop        *Stop
	Route       *Route
	BranchIDs   []int
}

type StopInfo struct {
	StopID   string
	Data     *Stop
	Distance float64
	Co       Operator
}

type RouteSearchResultEntry struct {
	RouteKey            string
	Route               *Route
	Co                  Operator
	StopInfo            *StopInfo
	Origin              *Coordinates
	IsInterchangeSearch bool
}

type MTRStationInterchange struct {
	Lines              []string
	OutOfStationLines  []string
	IsOutOfStationPaid bool
	HasLightRail       bool
}
