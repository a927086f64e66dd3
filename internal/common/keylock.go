package common

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

const keyLockShards = 64

// KeyLock serializes work per (item, location) pair without a global lock.
// Unrelated pairs hash to different shards and proceed in parallel; the same
// pair always hashes to the same shard, so policy activation and detector
// evaluation for one pair never interleave.
type KeyLock struct {
	shards [keyLockShards]sync.Mutex
}

func NewKeyLock() *KeyLock {
	return &KeyLock{}
}

func (l *KeyLock) shard(itemID, locationID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(itemID[:])
	h.Write(locationID[:])
	return &l.shards[h.Sum32()%keyLockShards]
}

func (l *KeyLock) Lock(itemID, locationID uuid.UUID) {
	l.shard(itemID, locationID).Lock()
}

func (l *KeyLock) Unlock(itemID, locationID uuid.UUID) {
	l.shard(itemID, locationID).Unlock()
}
