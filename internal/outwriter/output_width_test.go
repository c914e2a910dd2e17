package outwriter

import (
	"testing"

	"github.com/huangsam/kpiroll/internal/contract"
	"github.com/stretchr/testify/assert"
)

func TestGetMetricColumnsPerTable(t *testing.T) {
	tests := []struct {
		name        string
		width       int
		withCountry bool
		expected    int
	}{
		{"standard terminal", 80, false, 3},
		{"wide terminal", 160, false, 7},
		{"country column takes space", 80, true, 2},
		{"narrow terminal still shows one", 20, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &contract.Config{Width: tt.width}
			assert.Equal(t, tt.width, GetTerminalWidth(cfg))
			assert.Equal(t, tt.expected, GetMetricColumnsPerTable(cfg, tt.withCountry))
		})
	}
}
