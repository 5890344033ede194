package database

import (
	"testing"

	"avroviewer/config"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCacheClient stands in for a connected valkey client; only Close is
// implemented.
type stubCacheClient struct {
	valkey.Client
	closed bool
}

func (s *stubCacheClient) Close() {
	s.closed = true
}

func TestCacheConstants(t *testing.T) {
	assert.Equal(t, 0, BATCHES_CACHE_INDEX)
	assert.Equal(t, 1, EVENTS_CACHE_INDEX)
}

func TestDB_CacheClients(t *testing.T) {
	batches := &stubCacheClient{}
	events := &stubCacheClient{}

	db := DB{Cache: Cache{Batches: batches, Events: events}}

	assert.True(t, db.CacheEnabled())
	assert.Len(t, db.Cache.clients(), 2)

	require.NoError(t, db.Close())
	assert.True(t, batches.closed)
	assert.True(t, events.closed)

	eventsOnly := DB{Cache: Cache{Events: &stubCacheClient{}}}
	assert.False(t, eventsOnly.CacheEnabled())
}

func TestNew_WithoutBackends(t *testing.T) {
	db, err := New(config.Config{ServerPort: 8288})
	require.NoError(t, err)

	assert.False(t, db.SQLEnabled())
	assert.False(t, db.CacheEnabled())
	assert.NoError(t, db.Close())
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.Config{
		DatabaseHost:     "db",
		DatabasePort:     5432,
		DatabaseUser:     "viewer",
		DatabasePassword: "secret",
		DatabaseName:     "avro",
	})

	assert.Equal(t, "host=db port=5432 user=viewer password=secret dbname=avro sslmode=disable TimeZone=UTC", dsn)
}

func TestCacheBuilder_Keys(t *testing.T) {
	id := uuid.MustParse("0198c5a4-8d5e-7c2e-9c61-5bb1f6d2a001")

	tests := []struct {
		name     string
		builder  *CacheBuilder
		expected string
	}{
		{
			name:     "string key",
			builder:  NewCacheBuilder(nil, "latest"),
			expected: "latest",
		},
		{
			name:     "hashed string key",
			builder:  NewCacheBuilder(nil, "latest").WithHash("batch"),
			expected: "batch:latest",
		},
		{
			name:     "uuid key",
			builder:  NewCacheBuilder(nil, id).WithHash("batch"),
			expected: "batch:" + id.String(),
		},
		{
			name:     "empty hash leaves key",
			builder:  NewCacheBuilder(nil, "latest").WithHash(""),
			expected: "latest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.builder.Key())
		})
	}
}

func TestCacheBuilder_WithoutClient(t *testing.T) {
	err := NewCacheBuilder(nil, "latest").WithStruct(map[string]int{"x": 1}).Set()
	assert.ErrorIs(t, err, ErrCacheUnavailable)

	var out map[string]any
	found, err := NewCacheBuilder(nil, "latest").Get(&out)
	assert.False(t, found)
	assert.ErrorIs(t, err, ErrCacheUnavailable)
}

func TestCacheBuilder_MarshalErrorIsDeferred(t *testing.T) {
	err := NewCacheBuilder(nil, "latest").WithStruct(make(chan int)).Set()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal value to json")
}
