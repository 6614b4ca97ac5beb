package securekv

import (
	"crypto/rand"
	"sync"

	"github.com/sleepyyui/notallyxo-sync-service/pkg/crypto"
)

// MemoryStore 内存实现，供测试使用
type MemoryStore struct {
	mu      sync.Mutex
	secrets map[string]string
	keys    map[string][]byte
}

var _ SecureStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		secrets: make(map[string]string),
		keys:    make(map[string][]byte),
	}
}

func (s *MemoryStore) GetOrCreateKey(alias string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[alias]; ok {
		return append([]byte(nil), k...), nil
	}
	fresh := make([]byte, crypto.KeyLength)
	if _, err := rand.Read(fresh); err != nil {
		return nil, err
	}
	s.keys[alias] = fresh
	return append([]byte(nil), fresh...), nil
}

func (s *MemoryStore) GetSecret(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.secrets[key]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func (s *MemoryStore) PutSecret(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, key)
	return nil
}
