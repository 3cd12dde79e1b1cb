package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListOrder(t *testing.T) {
	tests := []struct {
		in    string
		want  ListOrder
		valid bool
	}{
		{"", ListLatest, true},
		{"latest", ListLatest, true},
		{"earliest", ListEarliest, true},
		{"newest", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseListOrder(tt.in)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
