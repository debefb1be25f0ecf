package brief

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finbrief/pkg/errors"
)

func TestRequest_NormalizeDeduplicates(t *testing.T) {
	req := &Request{Symbols: []string{" aapl", "GOOGL", "AAPL", "", "googl "}}
	req.Normalize()

	assert.Equal(t, []string{"AAPL", "GOOGL"}, req.Symbols)
}

func TestRequest_ValidateEmptySymbols(t *testing.T) {
	req := &Request{}
	req.Normalize()

	err := req.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRequest_ValidateUnknownFocusArea(t *testing.T) {
	req := &Request{Symbols: []string{"AAPL"}, FocusAreas: []FocusArea{"astrology"}}

	err := req.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestMarketBrief_DeriveStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all complete", []Status{StatusComplete, StatusComplete}, StatusComplete},
		{"mixed", []Status{StatusComplete, StatusPartial}, StatusPartial},
		{"one failed", []Status{StatusComplete, StatusFailed}, StatusPartial},
		{"all failed", []Status{StatusFailed, StatusFailed}, StatusFailed},
		{"empty", nil, StatusFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &MarketBrief{PerSymbol: map[string]*SymbolBrief{}}
			for i, st := range tc.statuses {
				b.PerSymbol[string(rune('A'+i))] = &SymbolBrief{Status: st}
			}
			assert.Equal(t, tc.want, b.DeriveStatus())
		})
	}
}
