package utils

import "sync"

// KeyedMutex serializes writes per key. Uploads to the same inspection must not
// race each other through the read-modify-write of the inspection row; uploads
// to different inspections are independent and proceed in parallel.
type KeyedMutex struct {
	locks sync.Map
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

func (km *KeyedMutex) Lock(key string) {
	mu, _ := km.locks.LoadOrStore(key, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
}

func (km *KeyedMutex) Unlock(key string) {
	mu, ok := km.locks.Load(key)
	if !ok {
		return
	}
	mu.(*sync.Mutex).Unlock()
}
