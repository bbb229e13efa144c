package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		address string
		city    string
		state   string
	}{
		{"123 Main St, San Diego, CA", "San Diego", "CA"},
		{"12 Elm St, San Diego, CA 92101", "San Diego", "CA"},
		{"400 Pine Ave, Austin TX 78701", "Austin", "TX"},
		{"Suite 4, Springfield, il", "Springfield", "IL"},
		{"9 Oak Rd, Springfield", "9 Oak Rd", ""},
		{"just a street", "", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		city, state := parseAddress(tt.address)
		assert.Equal(t, tt.city, city, tt.address)
		assert.Equal(t, tt.state, state, tt.address)
	}
}
