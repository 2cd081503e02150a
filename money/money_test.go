package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) Amount {
	t.Helper()
	a, err := Parse(s)
	require.NoError(t, err)
	return a
}

func TestSumIsExact(t *testing.T) {
	// 0.1 + 0.2 drifts in float64
	total := Sum(mustParse(t, "0.1"), mustParse(t, "0.2"))
	assert.Equal(t, "0.3", total.String())

	total = Sum(mustParse(t, "137514151481.5"), mustParse(t, "129397416548.98"))
	assert.Equal(t, "266911568030.48", total.String())
	assert.Equal(t, "266.91", total.Billions(2))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("twelve dollars")
	assert.Error(t, err)
}

func TestMulPct(t *testing.T) {
	spending := mustParse(t, "1000.00")
	assert.Equal(t, 0, spending.MulPct(73.10).Cmp(mustParse(t, "731")))
}

func TestDivAndRound(t *testing.T) {
	q, ok := mustParse(t, "10").Div(FromInt(3))
	require.True(t, ok)
	assert.Equal(t, "3.33", q.Round(2).String())

	_, ok = FromInt(1).Div(Amount{})
	assert.False(t, ok)

	assert.Equal(t, "2.68", mustParse(t, "2.675").Round(2).String())
}

func TestJSON(t *testing.T) {
	var v struct {
		Paid Amount `json:"paid"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"paid":"1234.50"}`), &v))
	assert.Equal(t, 1234.5, v.Paid.Float64())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"paid":1234.50}`, string(out))
}

func TestFromFloat(t *testing.T) {
	a, err := FromFloat(6807.21)
	require.NoError(t, err)
	assert.Equal(t, "6807.21", a.String())
	assert.Equal(t, "-6807.21", FromInt(0).Sub(a).String())
}
