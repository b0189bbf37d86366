package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"KH3", "SUPER BLACK"},
		{"XDT", "PEARL WHITE / SUPER BLACK"},
		{"ZZZ", "ZZZ"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ColorName(tt.code), "ColorName(%q)", tt.code)
	}
}

func TestColorNameFromPrefix(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"KH3-CHARCOAL CLOTH", "SUPER BLACK"},
		{"QAB", "PEARL WHITE TRICOAT"},
		{"NOPE-123", "NOPE-123"},
		{"K2", "K2"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ColorNameFromPrefix(tt.raw), "ColorNameFromPrefix(%q)", tt.raw)
	}
}

func TestColorTableSize(t *testing.T) {
	assert.GreaterOrEqual(t, len(colors), 50)
	assert.LessOrEqual(t, len(colors), 60)
}

func TestModelNamePassThrough(t *testing.T) {
	assert.Equal(t, "ALTIMA", ModelName("ALT"))
	assert.Equal(t, "QX5", ModelName("QX5"))
}

func TestStoreFor(t *testing.T) {
	assert.Equal(t, "CN", StoreFor("Concord Nissan"))
	assert.Equal(t, "HK", StoreFor(" MODERN NISSAN OF HICKORY "))
	assert.Equal(t, "Somewhere Else", StoreFor("Somewhere Else"))
}

func TestDefaultListsAreCopies(t *testing.T) {
	s := Stores()
	s[0] = "XX"
	assert.Equal(t, "CN", Stores()[0])

	m := Models()
	m[0] = "XX"
	assert.Equal(t, "VER", Models()[0])
}

func TestPackageLabel(t *testing.T) {
	tests := []struct {
		blob string
		want string
	}{
		{"PR1,TE2", "PRM TECH"},
		{"CN1 TE1 PR2", "PRM TECH CONV"},
		{"B10,L92", ""},
		{"", ""},
		{"cnv", "CONV"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PackageLabel(tt.blob), "PackageLabel(%q)", tt.blob)
	}
}

func TestPackageLabelMonotonic(t *testing.T) {
	base := "TE1,B10"
	before := PackageTokens(base)
	after := PackageTokens(base + ",PR1")

	for _, tok := range before {
		assert.Contains(t, after, tok)
	}
	assert.Contains(t, after, PackagePremium)
}
