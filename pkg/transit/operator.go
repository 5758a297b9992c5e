package transit

import (
	"regexp"
	"strings"
	"sync"
)

type Operator string

const (
	OperatorKMB    Operator = "kmb"
	OperatorCTB    Operator = "ctb"
	OperatorNLB    Operator = "nlb"
	OperatorMTRBus Operator = "mtr-bus"
	OperatorGMB    Operator = "gmb"
	OperatorLRT    Operator = "lightRail"
	OperatorMTR    Operator = "mtr"
)

var builtinOperators = []Operator{
	OperatorKMB,
	OperatorCTB,
	OperatorNLB,
	OperatorMTRBus,
	OperatorGMB,
	OperatorLRT,
	OperatorMTR,
}

var operatorNames = map[Operator]string{
	OperatorKMB:    "KMB",
	OperatorCTB:    "CTB",
	OperatorNLB:    "NLB",
	OperatorMTRBus: "MTR_BUS",
	OperatorGMB:    "GMB",
	OperatorLRT:    "LRT",
	OperatorMTR:    "MTR",
}

var stopIDPatterns = map[Operator]*regexp.Regexp{
	OperatorKMB:    regexp.MustCompile("^[0-9A-Z]{16}$"),
	OperatorCTB:    regexp.MustCompile("^[0-9]{6}$"),
	OperatorNLB:    regexp.MustCompile("^[0-9]{1,4}$"),
	OperatorMTRBus: regexp.MustCompile("^[A-Z]?[0-9]{1,3}[A-Z]?-[A-Z][0-9]{3}$"),
	OperatorGMB:    regexp.MustCompile("^[0-9]{8}$"),
	OperatorLRT:    regexp.MustCompile("^LR[0-9]+$"),
	OperatorMTR:    regexp.MustCompile("^[A-Z]{3}$"),
}

// Operators that appear in a dataset but are not built in are ordered after the built in ones,
// in the order they were first seen
var (
	extraOperatorsMutex sync.Mutex
	extraOperators      = map[Operator]int{}
)

// Operators lists the built in operators in priority order
func Operators() []Operator {
	operators := make([]Operator, len(builtinOperators))
	copy(operators, builtinOperators)
	return operators
}

func (o Operator) Ordinal() int {
	for i, operator := range builtinOperators {
		if operator == o {
			return i
		}
	}

	extraOperatorsMutex.Lock()
	defer extraOperatorsMutex.Unlock()

	if ordinal, exists := extraOperators[o]; exists {
		return ordinal
	}
	ordinal := len(builtinOperators) + len(extraOperators)
	extraOperators[o] = ordinal

	return ordinal
}

func (o Operator) IsBuiltin() bool {
	_, exists := operatorNames[o]
	return exists
}

// Name is the upper case operator name used in composite search keys
func (o Operator) Name() string {
	if name, exists := operatorNames[o]; exists {
		return name
	}
	return strings.ToUpper(string(o))
}

func (o Operator) IsTrain() bool {
	return o == OperatorMTR || o == OperatorLRT
}

func (o Operator) IsBus() bool {
	return o.IsBuiltin() && !o.IsTrain()
}

func (o Operator) MatchesStopID(stopID string) bool {
	pattern, exists := stopIDPatterns[o]
	if !exists {
		return false
	}
	return pattern.MatchString(stopID)
}

// IdentifyStopCo returns every built in operator whose stop id format matches stopID
func IdentifyStopCo(stopID string) []Operator {
	var operators []Operator
	for _, operator := range builtinOperators {
		if operator.MatchesStopID(stopID) {
			operators = append(operators, operator)
		}
	}
	return operators
}

// FirstStopCo is the highest priority operator whose stop id format matches stopID
func FirstStopCo(stopID string) (Operator, bool) {
	operators := IdentifyStopCo(stopID)
	if len(operators) == 0 {
		return "", false
	}
	return operators[0], true
}

// DisplayName is the operator label used when results from several operators are shown together
func (o Operator) DisplayName(routeNumber string, subsidiary KMBSubsidiary) BilingualText {
	switch o {
	case OperatorKMB:
		if subsidiary == KMBSubsidiaryLWB {
			return BilingualText{Zh: "龍運", En: "LWB"}
		}
		return BilingualText{Zh: "九巴", En: "KMB"}
	case OperatorCTB:
		return BilingualText{Zh: "城巴", En: "CTB"}
	case OperatorNLB:
		return BilingualText{Zh: "嶼巴", En: "NLB"}
	case OperatorMTRBus:
		return BilingualText{Zh: "港鐵巴士", En: "MTR Bus"}
	case OperatorGMB:
		return BilingualText{Zh: "專線小巴", En: "GMB"}
	case OperatorLRT:
		return BilingualText{Zh: "輕鐵", En: "LRT"}
	case OperatorMTR:
		return BilingualText{Zh: "港鐵", En: "MTR"}
	}
	return BilingualText{Zh: string(o), En: string(o)}
}

func (o Operator) Colour(routeNumber string, subsidiary KMBSubsidiary) uint32 {
	switch o {
	case OperatorKMB:
		if subsidiary == KMBSubsidiaryLWB {
			return 0xFFF26C33
		}
		return 0xFFFF4747
	case OperatorCTB:
		return 0xFFFFE15E
	case OperatorNLB:
		return 0xFF74C497
	case OperatorMTRBus:
		return 0xFFAAD4FF
	case OperatorGMB:
		return 0xFF36FF42
	case OperatorLRT:
		return 0xFFD3A809
	case OperatorMTR:
		return MTRLineColour(routeNumber)
	}
	return 0xFFFFFFFF
}

func MTRLineColour(line string) uint32 {
	switch line {
	case "AEL":
		return 0xFF00888E
	case "TCL":
		return 0xFFF3982D
	case "TML":
		return 0xFF9C2E00
	case "TKL":
		return 0xFF7E3C93
	case "EAL":
		return 0xFF5EB7E8
	case "SIL":
		return 0xFFCBD300
	case "TWL":
		return 0xFFE60012
	case "ISL":
		return 0xFF0075C2
	case "KTL":
		return 0xFF00A040
	case "DRL":
		return 0xFFEB6EA5
	}
	return 0xFFAAD4FF
}

var mtrLineSortingIndex = map[string]int{
	"AEL": 0,
	"TCL": 1,
	"DRL": 2,
	"EAL": 3,
	"TML": 4,
	"SIL": 5,
	"ISL": 6,
	"KTL": 7,
	"TWL": 8,
	"TKL": 9,
}

func MTRLineSortingIndex(line string) int {
	if index, exists := mtrLineSortingIndex[line]; exists {
		return index
	}
	return 10
}

type GMBRegion string

const (
	GMBRegionHKI GMBRegion = "HKI"
	GMBRegionKLN GMBRegion = "KLN"
	GMBRegionNT  GMBRegion = "NT"
)

type KMBSubsidiary string

const (
	KMBSubsidiaryKMB  KMBSubsidiary = "KMB"
	KMBSubsidiaryLWB  KMBSubsidiary = "LWB"
	KMBSubsidiarySUNB KMBSubsidiary = "SUNB"
)
