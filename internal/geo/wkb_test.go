package geo

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/monument-cli/internal/model"
)

func TestEncodeEWKB_RoundTrip(t *testing.T) {
	t.Parallel()

	c := &model.Coordinates{Lat: 48.8584, Lon: 2.2945}
	data, err := EncodeEWKB(c)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, byte(0x01), data[0], "little-endian marker")

	got, err := DecodeEWKB(data)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, c.Lat, got.Lat, 1e-12)
	assert.InDelta(t, c.Lon, got.Lon, 1e-12)
}

func TestEncodeEWKB_Nil(t *testing.T) {
	t.Parallel()

	data, err := EncodeEWKB(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	got, err := DecodeEWKB(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEncodeEWKB_Invalid(t *testing.T) {
	t.Parallel()

	_, err := EncodeEWKB(&model.Coordinates{Lat: 120, Lon: 0})
	assert.True(t, eris.Is(err, ErrInvalidCoordinate))
}

func TestPoint_SRID(t *testing.T) {
	t.Parallel()

	p := Point(model.Coordinates{Lat: 1, Lon: 2})
	assert.Equal(t, SRID, p.SRID())
	assert.Equal(t, 2.0, p.X())
	assert.Equal(t, 1.0, p.Y())
}
