package amount

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saingsab/jaamlong/internal/errs"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		decimals uint8
		want     string
	}{
		{"one ether", 1.0, 18, "1000000000000000000"},
		// 1.001 is not exactly representable; the conversion floors the exact
		// product of the stored double and 10^18.
		{"fractional ether", 1.001, 18, "1000999999999999889"},
		{"usdc hundred", 100.0, 6, "100000000"},
		{"usdc fee", 0.001 * 100, 6, "100000"},
		{"zero", 0, 18, "0"},
		{"truncates toward zero", 0.0000001, 6, "0"},
		{"no decimals", 42.9, 0, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBaseUnits(tt.amount, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

// TestToBaseUnitsExactness pins floor(amount * 10^d) for values exactly
// representable in double precision.
func TestToBaseUnitsExactness(t *testing.T) {
	for _, amount := range []float64{0.5, 2, 1024.25, 123456789.0} {
		got, err := ToBaseUnits(amount, 6)
		require.NoError(t, err)
		want := new(big.Int).SetUint64(uint64(math.Floor(amount * 1e6)))
		assert.Equal(t, want.String(), got.String(), "amount %v", amount)
	}
}

func TestToBaseUnitsRejects(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
	}{
		{"NaN", math.NaN()},
		{"+Inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
		{"negative", -1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToBaseUnits(tt.amount, 18)
			require.Error(t, err)
			assert.Equal(t, errs.CodeInvalidAmount, errs.CodeOf(err))
		})
	}
}

func TestToBaseUnitsOverflow(t *testing.T) {
	_, err := ToBaseUnits(1e38, 18)
	require.Error(t, err)
	assert.Equal(t, errs.CodeAmountOverflow, errs.CodeOf(err))
}

func TestBridgeFee(t *testing.T) {
	fee, err := BridgeFee(0.001, 1.0, 18)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000", fee.String())

	fee, err = BridgeFee(0.001, 100.0, 6)
	require.NoError(t, err)
	assert.Equal(t, "100000", fee.String())

	fee, err = BridgeFee(0, 5.0, 18)
	require.NoError(t, err)
	assert.Equal(t, "0", fee.String())

	_, err = BridgeFee(-0.1, 1.0, 18)
	require.Error(t, err)
}
