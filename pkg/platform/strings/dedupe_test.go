package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "blank", input: "   ", expected: nil},
		{name: "single", input: "localhost:9092", expected: []string{"localhost:9092"}},
		{
			name:     "trims and drops empty parts",
			input:    " a:9092, ,b:9092,",
			expected: []string{"a:9092", "b:9092"},
		},
		{
			name:     "removes duplicates preserving order",
			input:    "b,a,b,c,a",
			expected: []string{"b", "a", "c"},
		},
		{
			name:     "preserves case",
			input:    "Loan,loan",
			expected: []string{"Loan", "loan"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitCSV(tt.input))
		})
	}
}

func TestNormalizeLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "case-insensitive dedupe", input: []string{" Loan", "LOAN", "fraud "}, expected: []string{"loan", "fraud"}},
		{name: "only blanks", input: []string{"", "  "}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLower(tt.input))
		})
	}
}
