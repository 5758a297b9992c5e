package manager

type State string

const (
	StateLoading        State = "LOADING"
	StateUpdateChecking State = "UPDATE_CHECKING"
	StateUpdating       State = "UPDATING"
	StateReady          State = "READY"
	StateError          State = "ERROR"
)

func (s State) IsProcessing() bool {
	return s == StateLoading || s == StateUpdateChecking || s == StateUpdating
}

// Status is what observers receive on every state or progress change
type Status struct {
	State    State   `json:"state"`
	Progress float64 `json:"progress"`
}
