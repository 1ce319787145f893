package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinuteOfDay(t *testing.T) {

	assert := assert.New(t)

	m, err := MinuteOfDay("00:00")
	assert.NoError(err)
	assert.Equal(0, m)

	m, err = MinuteOfDay("09:05")
	assert.NoError(err)
	assert.Equal(545, m)

	m, err = MinuteOfDay("23:59")
	assert.NoError(err)
	assert.Equal(1439, m)

	for _, bad := range []string{"9:00", "24:00", "12:60", "12", "12:00:00", " 12:00", ""} {
		_, err := MinuteOfDay(bad)
		assert.Error(err, bad)
	}
}
