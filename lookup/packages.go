package lookup

import "strings"

// Package tokens, in output order.
const (
	PackagePremium     = "PRM"
	PackageTechnology  = "TECH"
	PackageConvenience = "CONV"
)

var packageTags = []struct {
	token string
	tags  []string
}{
	{PackagePremium, []string{"PR1", "PR2", "PR3", "PRM", "PRE"}},
	{PackageTechnology, []string{"TE1", "TE2", "TE3", "TCH", "TEC"}},
	{PackageConvenience, []string{"CN1", "CN2", "CN3", "CNV", "CON"}},
}

// PackageTokens classifies a raw option-code blob. A token fires when any of
// its tags occurs as a substring; tokens come back in Premium, Technology,
// Convenience order.
func PackageTokens(optionBlob string) []string {
	blob := strings.ToUpper(optionBlob)
	var out []string
	for _, p := range packageTags {
		for _, tag := range p.tags {
			if strings.Contains(blob, tag) {
				out = append(out, p.token)
				break
			}
		}
	}
	return out
}

// PackageLabel joins PackageTokens with single spaces; "" when none fire.
func PackageLabel(optionBlob string) string {
	return strings.Join(PackageTokens(optionBlob), " ")
}
