package lookup

import "strings"

// storeOrder is the default report column order.
var storeOrder = []string{"CN", "WS", "LN", "HK"}

// dealerStores maps dealer names, as they appear in exports, to store short
// names. Keys are upper-cased.
var dealerStores = map[string]string{
	"CONCORD NISSAN":                 "CN",
	"MODERN NISSAN OF CONCORD":       "CN",
	"NISSAN OF CONCORD":              "CN",
	"WINSTON-SALEM NISSAN":           "WS",
	"MODERN NISSAN OF WINSTON-SALEM": "WS",
	"MODERN NISSAN OF WINSTON SALEM": "WS",
	"LAKE NORMAN NISSAN":             "LN",
	"MODERN NISSAN OF LAKE NORMAN":   "LN",
	"NISSAN OF LAKE NORMAN":          "LN",
	"HICKORY NISSAN":                 "HK",
	"MODERN NISSAN OF HICKORY":       "HK",
}

// StoreFor maps a dealer name to its store short name. Unknown dealers pass
// through unchanged.
func StoreFor(dealerName string) string {
	if store, ok := dealerStores[strings.ToUpper(strings.TrimSpace(dealerName))]; ok {
		return store
	}
	return dealerName
}

// Stores returns the default report store short names in column order.
func Stores() []string {
	return append([]string(nil), storeOrder...)
}
