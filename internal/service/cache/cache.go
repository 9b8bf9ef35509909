package cache

import "time"

// BytesCache stores pre-rendered response bodies with a TTL. The prediction
// handler caches the full envelope so cached and fresh replies are
// byte-identical.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
