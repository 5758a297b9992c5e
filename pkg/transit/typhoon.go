package transit

type TyphoonInfo struct {
	IsAboveTyphoonSignalEight bool   `json:"isAboveTyphoonSignalEight"`
	IsAboveTyphoonSignalNine  bool   `json:"isAboveTyphoonSignalNine"`
	TyphoonWarningTitle       string `json:"typhoonWarningTitle"`
	CurrentTyphoonSignalID    string `json:"currentTyphoonSignalId"`
	LastUpdated               int64  `json:"lastUpdated"`
}

// NoTyphoonInfo is the neutral value used when no warning is in force
func NoTyphoonInfo(lastUpdated int64) TyphoonInfo {
	return TyphoonInfo{LastUpdated: lastUpdated}
}

// TyphoonNoData has never been fetched
var TyphoonNoData = NoTyphoonInfo(0)
