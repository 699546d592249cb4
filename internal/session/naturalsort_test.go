package session

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"2", "10", true},
		{"10", "2", false},
		{"A2", "A10", true},
		{"A10", "B2", true},
		{"No.9", "No.10", true},
		{"007", "8", true},
		{"a1", "A2", true}, // case insensitive
		{"gap", "gap-a", true},
		{"Gap-A", "Gap-A", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, naturalLess(tt.a, tt.b), "%q < %q", tt.a, tt.b)
	}
}

func TestNaturalSortOrder(t *testing.T) {
	names := []string{"No.10", "No.2", "A10", "No.1", "A2", "A1", "12", "3"}
	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })
	assert.Equal(t, []string{"3", "12", "A1", "A2", "A10", "No.1", "No.2", "No.10"}, names)
}
