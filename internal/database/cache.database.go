package database

import (
	"context"
	"fmt"
	"time"

	"avroviewer/config"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/valkey-io/valkey-go"
)

// Valkey database index layout.
const (
	// BATCHES_CACHE_INDEX (DB 0) - latest batch outcome snapshots
	BATCHES_CACHE_INDEX = iota

	// EVENTS_CACHE_INDEX (DB 1) - pub/sub for decode progress and batch events
	EVENTS_CACHE_INDEX
)

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")
	log.Info("initializing cache database")

	address := fmt.Sprintf("%s:%d", config.DatabaseCacheAddress, config.DatabaseCachePort)

	var cacheDB Cache
	var err error

	cacheDB.Batches, err = newCacheClient(address, BATCHES_CACHE_INDEX)
	if err != nil {
		return log.Err("failed to create batches valkey client", err)
	}

	cacheDB.Events, err = newCacheClient(address, EVENTS_CACHE_INDEX)
	if err != nil {
		cacheDB.Batches.Close()
		return log.Err("failed to create events valkey client", err)
	}

	s.Cache = cacheDB

	if config.DatabaseCacheReset != -1 {
		go clearCacheDB(config.DatabaseCacheReset, cacheDB)
	}

	return nil
}

func newCacheClient(address string, index int) (CacheClient, error) {
	return valkey.NewClient(
		valkey.ClientOption{
			InitAddress: []string{address},
			SelectDB:    index,
		},
	)
}

func clearCacheDB(index int, cacheDB Cache) {
	log := logger.New("database").File("cache.database").Function("clearCacheDB")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var client CacheClient
	var dbName string

	switch index {
	case BATCHES_CACHE_INDEX:
		client = cacheDB.Batches
		dbName = "Batches"
	case EVENTS_CACHE_INDEX:
		client = cacheDB.Events
		dbName = "Events"
	default:
		log.Warn("Invalid cache database index", "index", index)
		return
	}

	if err := client.Do(ctx, client.B().Flushdb().Build()).Error(); err != nil {
		log.Er("Failed to clear cache database", err, "index", index, "dbName", dbName)
		return
	}

	log.Info("Successfully cleared cache database", "index", index, "dbName", dbName)
}
