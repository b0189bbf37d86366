// Package tradeform builds the flat record behind a dealer trade document.
package tradeform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"vinpipe/models"
)

// Record keys.
const (
	FieldProjectedCost  = "projected_cost"
	FieldKeyCharge      = "key_charge"
	FieldFee            = "fee"
	FieldTransferAmount = "transfer_amount"
)

// currencyFields are parsed as money and re-rendered with two decimals.
var currencyFields = []string{FieldProjectedCost, FieldKeyCharge}

// Record is a trade document's field values, keyed by field name.
type Record map[string]string

// Keys returns the field names in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Build copies fields into a Record, normalizes the currency fields and adds
// transfer_amount = projected_cost - key_charge - fee. A zero fee is left out
// of the record. Free-text fields pass through trimmed.
func Build(fields map[string]string, fee decimal.Decimal) (Record, error) {
	rec := make(Record, len(fields)+2)
	for k, v := range fields {
		rec[k] = strings.TrimSpace(v)
	}

	amounts := make(map[string]decimal.Decimal, len(currencyFields))
	for _, f := range currencyFields {
		d, err := ParseCurrency(rec[f])
		if err != nil {
			return nil, fmt.Errorf("tradeform: %s: %w", f, err)
		}
		amounts[f] = d
		rec[f] = FormatCurrency(d)
	}

	transfer := amounts[FieldProjectedCost].Sub(amounts[FieldKeyCharge])
	if !fee.IsZero() {
		transfer = transfer.Sub(fee)
		rec[FieldFee] = FormatCurrency(fee)
	}
	rec[FieldTransferAmount] = FormatCurrency(transfer)
	return rec, nil
}

// FromVehicle prefills the vehicle fields of a trade record.
func FromVehicle(v models.Vehicle) map[string]string {
	return map[string]string{
		"vin":            v.VIN,
		"model_year":     v.ModelYear,
		"model":          v.ModelCode,
		"trim":           v.Trim,
		"exterior_color": v.ExteriorColor,
		"order_number":   v.OrderNumber,
		"dealer_name":    v.DealerName,
	}
}

// ParseCurrency reads "$1,234.50", "1234.5" or "" (zero). Parenthesized
// amounts are negative.
func ParseCurrency(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not an amount: %q", s)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// FormatCurrency renders d with exactly two decimals.
func FormatCurrency(d decimal.Decimal) string {
	return d.StringFixed(2)
}
