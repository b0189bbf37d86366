package lookup

import "strings"

// modelOrder is the default report row order.
var modelOrder = []string{
	"VER", "SEN", "ALT", "KIC", "RSP", "ROG", "MUR", "PTH", "ARM", "FRO", "LEA", "ARI", "Z",
}

var modelNames = map[string]string{
	"VER": "VERSA",
	"SEN": "SENTRA",
	"ALT": "ALTIMA",
	"MAX": "MAXIMA",
	"KIC": "KICKS",
	"RSP": "ROGUE SPORT",
	"ROG": "ROGUE",
	"MUR": "MURANO",
	"PTH": "PATHFINDER",
	"ARM": "ARMADA",
	"FRO": "FRONTIER",
	"TIT": "TITAN",
	"LEA": "LEAF",
	"ARI": "ARIYA",
	"Z":   "Z",
	"GTR": "GT-R",
}

// ModelName expands a short model code for report display. Unknown codes
// pass through unchanged.
func ModelName(code string) string {
	if name, ok := modelNames[strings.TrimSpace(code)]; ok {
		return name
	}
	return code
}

// Models returns the default report model codes in row order.
func Models() []string {
	return append([]string(nil), modelOrder...)
}
