package geo

import (
	"context"
	"errors"
	"net"
	"testing"

	"inkpost/internal/cache"
	"inkpost/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/oschwald/geoip2-golang"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	iso   string
	err   error
	calls int
}

func (f *fakeReader) Country(_ net.IP) (*geoip2.Country, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var c geoip2.Country
	c.Country.IsoCode = f.iso
	return &c, nil
}

func TestMaxMind_Country(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := &MaxMind{reader: &fakeReader{iso: "TR"}}
	assert.Equal(t, "TR", m.Country(ctx, "85.105.1.1"))
	assert.Equal(t, models.UnknownCountry, m.Country(ctx, "not-an-ip"))
	assert.Equal(t, models.UnknownCountry, m.Country(ctx, "127.0.0.1"))
	assert.Equal(t, models.UnknownCountry, m.Country(ctx, "192.168.1.10"))

	failing := &MaxMind{reader: &fakeReader{err: errors.New("corrupt db")}}
	assert.Equal(t, models.UnknownCountry, failing.Country(ctx, "8.8.8.8"))

	blank := &MaxMind{reader: &fakeReader{}}
	assert.Equal(t, models.UnknownCountry, blank.Country(ctx, "8.8.8.8"))
}

func TestCached_Country(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	reader := &fakeReader{iso: "DE"}
	loc := NewCached(&MaxMind{reader: reader}, cache.NewStore(rdb))
	ctx := context.Background()

	assert.Equal(t, "DE", loc.Country(ctx, "5.9.0.1"))
	assert.Equal(t, "DE", loc.Country(ctx, "5.9.0.1"))
	assert.Equal(t, 1, reader.calls)
	assert.Equal(t, models.UnknownCountry, loc.Country(ctx, ""))
}

func TestNew_FallsBackToUnknown(t *testing.T) {
	t.Parallel()

	loc, closeFn := New("", cache.NewStore(nil))
	assert.IsType(t, Unknown{}, loc)
	assert.NoError(t, closeFn())

	loc, closeFn = New("/nonexistent/GeoLite2-Country.mmdb", cache.NewStore(nil))
	assert.IsType(t, Unknown{}, loc)
	assert.NoError(t, closeFn())
	assert.Equal(t, models.UnknownCountry, loc.Country(context.Background(), "8.8.8.8"))
}
