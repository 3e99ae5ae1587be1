package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"HSE", "HybridSearchEngine", true},
		{"hybSe", "HybridSearchEngine", true},
		{"hse", "HybridSearchEngine", true},
		{"HybridSearch", "HybridSearchEngine", true},
		{"searchengine", "HybridSearchEngine", true},
		{"SEng", "HybridSearchEngine", false},
		{"HSX", "HybridSearchEngine", false},
		{"HS", "HTTPServer", true},
		{"ms", "max_size", true},
		{"x_s", "max_size", true},
		{"Ctrl", "UserController", false},
		{"UC", "UserController", true},
		{"controller", "UserController", true},
		{"", "UserController", false},
		{"User", "", false},
		{"LongerThanName", "Short", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.name))
		})
	}
}

func TestMatchCamelHumps_FirstHumpMustMatch(t *testing.T) {
	assert.False(t, MatchCamelHumps("Search", "HybridSearchEngine"))
	assert.True(t, MatchCamelHumps("HSearch", "HybridSearchEngine"))
}

func TestHumpStarts(t *testing.T) {
	assert.Equal(t, []int{6, 12}, humpStarts([]rune("HybridSearchEngine")))
	assert.Equal(t, []int{4}, humpStarts([]rune("HTTPServer")))
	assert.Equal(t, []int{4}, humpStarts([]rune("max_size")))
	assert.Equal(t, []int{5, 6}, humpStarts([]rune("parse2D")))
}

func TestIsIdentifierQuery(t *testing.T) {
	assert.True(t, IsIdentifierQuery("getUser_by-id"))
	assert.False(t, IsIdentifierQuery("naïve"))
	assert.False(t, IsIdentifierQuery("tab\there"))
}
