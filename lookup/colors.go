// Package lookup holds the fixed reference tables used during normalization
// and reporting. The tables are read-only; callers go through the functions.
package lookup

import "strings"

// colors maps factory paint codes to display names. Two-tone codes carry
// both body and roof colors.
var colors = map[string]string{
	"QAB": "PEARL WHITE TRICOAT",
	"QAK": "GLACIER WHITE",
	"QM1": "FRESH POWDER",
	"QAC": "ASPEN WHITE TRICOAT",
	"K23": "BRILLIANT SILVER",
	"KAD": "GUN METALLIC",
	"KAB": "BOULDER GRAY",
	"KBY": "CHAMPAGNE SILVER",
	"KCE": "CERAMIC GRAY",
	"KH3": "SUPER BLACK",
	"G41": "MAGNETIC BLACK",
	"GAQ": "OBSIDIAN GREEN",
	"NAH": "CAYENNE RED",
	"NBL": "SCARLET EMBER TINTCOAT",
	"NBV": "MONARCH ORANGE",
	"NBF": "FIRE RED",
	"A20": "SUNSET DRIFT CHROMAFLAIR",
	"CAS": "CARDINAL RED",
	"RAY": "DEEP BLUE PEARL",
	"RBY": "CASPIAN BLUE",
	"RCF": "ELECTRIC BLUE",
	"RCW": "BOULDER BLUE",
	"RBN": "SEIRAN BLUE",
	"RCA": "COASTAL BLUE",
	"EBB": "BAJA STORM",
	"EAT": "BRONZE",
	"DAN": "SANDSTONE",
	"HAJ": "TACTICAL GREEN",
	"HBC": "NORTHERN LIGHTS",
	"GAW": "BLACK DIAMOND",
	"KBE": "MOTION GRAY",
	"EAN": "DESERT SAND",
	"XDT": "PEARL WHITE / SUPER BLACK",
	"XDR": "GLACIER WHITE / SUPER BLACK",
	"XAH": "SCARLET EMBER / SUPER BLACK",
	"XDQ": "GUN METALLIC / SUPER BLACK",
	"XFV": "DEEP BLUE PEARL / SUPER BLACK",
	"XKY": "BOULDER GRAY / SUPER BLACK",
	"XFS": "ELECTRIC BLUE / SUPER BLACK",
	"XBJ": "MONARCH ORANGE / SUPER BLACK",
	"XDF": "BAJA STORM / SUPER BLACK",
	"XEY": "CERAMIC GRAY / SUPER BLACK",
	"XAB": "BRILLIANT SILVER / SUPER BLACK",
	"XCE": "CARDINAL RED / SUPER BLACK",
	"XGH": "TACTICAL GREEN / SUPER BLACK",
	"XDS": "CASPIAN BLUE / SUPER BLACK",
	"XKJ": "SEIRAN BLUE / SUPER BLACK",
	"XEW": "PEARL WHITE / GUN METALLIC",
	"XGY": "BOULDER GRAY / PEARL WHITE",
	"XJR": "CHAMPAGNE SILVER / SUPER BLACK",
	"XFU": "NORTHERN LIGHTS / SUPER BLACK",
	"XAW": "ASPEN WHITE / SUPER BLACK",
	"XBR": "BRONZE / SUPER BLACK",
	"XDN": "SANDSTONE / SUPER BLACK",
	"XAE": "COASTAL BLUE / SUPER BLACK",
	"XHM": "OBSIDIAN GREEN / SUPER BLACK",
}

// ColorName decodes a factory paint code. Unknown codes pass through
// unchanged.
func ColorName(code string) string {
	if name, ok := colors[strings.TrimSpace(code)]; ok {
		return name
	}
	return code
}

// ColorNameFromPrefix decodes the first three characters of raw, for sources
// that append trim or interior text after the paint code. Values that do not
// decode pass through unchanged.
func ColorNameFromPrefix(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > 3 {
		s = s[:3]
	}
	if name, ok := colors[s]; ok {
		return name
	}
	return raw
}
