package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeframeWeightOrdering(t *testing.T) {
	assert.Equal(t, 1.0, TimeframeM15.Weight())
	assert.Equal(t, 1.5, TimeframeH1.Weight())
	assert.Equal(t, 2.0, TimeframeH4.Weight())
	assert.Equal(t, 3.0, TimeframeD1.Weight())
	assert.Equal(t, 4.0, TimeframeW1.Weight())
}

func TestTimeframeVerificationWindows(t *testing.T) {
	assert.Equal(t, time.Hour, TimeframeM15.VerificationWindow())
	assert.Equal(t, 4*time.Hour, TimeframeH1.VerificationWindow())
	assert.Equal(t, 12*time.Hour, TimeframeH4.VerificationWindow())
	assert.Equal(t, 24*time.Hour, TimeframeD1.VerificationWindow())
	assert.Equal(t, 7*24*time.Hour, TimeframeW1.VerificationWindow())
}

func TestTimeframeValid(t *testing.T) {
	assert.True(t, TimeframeH1.Valid())
	assert.False(t, Timeframe("M5").Valid())
}
