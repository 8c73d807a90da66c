package broker

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newTestBroker starts an in-memory Redis double and returns a Broker wired
// to it, bypassing New's URL parsing and Ping (miniredis needs no DSN).
func newTestBroker(t *testing.T) *Broker {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return &Broker{Client: client}
}
