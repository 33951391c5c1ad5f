//    Copyright 2024 FieldNet authors
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

var maskAny = errors.WithStack

// API of the persistent key-value store. The transaction engine
// writes the sensor table here on successful commit only; rollback
// leaves the previously persisted state untouched.
type API interface {
	// Get returns the value for the given key, or the given default
	// when the key is absent.
	Get(key string, def []byte) []byte
	// Put stores the value under the given key.
	Put(key string, value []byte) error
}

// fileStore persists all keys in a single JSON file.
type fileStore struct {
	mutex sync.Mutex
	log   zerolog.Logger
	path  string
	data  map[string]json.RawMessage
}

// NewFileStore opens (or creates) a file backed store at the given path.
func NewFileStore(path string, log zerolog.Logger) (API, error) {
	s := &fileStore{
		log:  log.With().Str("component", "store").Logger(),
		path: path,
		data: make(map[string]json.RawMessage),
	}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	} else if err != nil {
		return nil, maskAny(err)
	}
	if err := json.Unmarshal(content, &s.data); err != nil {
		// A corrupt store must not keep the node from booting.
		s.log.Error().Err(err).Str("path", path).Msg("Cannot parse store file, starting empty")
		s.data = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Get returns the value for the given key, or the given default
// when the key is absent.
func (s *fileStore) Get(key string, def []byte) []byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if value, found := s.data[key]; found {
		return append([]byte(nil), value...)
	}
	return def
}

// Put stores the value under the given key and flushes the file.
func (s *fileStore) Put(key string, value []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[key] = append(json.RawMessage(nil), value...)
	content, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return maskAny(err)
	}
	// Write to a temp file first so a power loss cannot corrupt
	// the previous state.
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return maskAny(err)
	}
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return maskAny(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return maskAny(err)
	}
	return nil
}

// memoryStore keeps keys in memory only, for tests and the
// virtual bridge.
type memoryStore struct {
	mutex sync.Mutex
	data  map[string][]byte
}

// NewMemoryStore creates a store that does not survive restarts.
func NewMemoryStore() API {
	return &memoryStore{
		data: make(map[string][]byte),
	}
}

func (s *memoryStore) Get(key string, def []byte) []byte {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if value, found := s.data[key]; found {
		return append([]byte(nil), value...)
	}
	return def
}

func (s *memoryStore) Put(key string, value []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.data[key] = append([]byte(nil), value...)
	return nil
}
