// Package prefs persists local user preferences in a YAML file and resolves
// the AI provider context attached to outbound backend calls.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	"studyhall/internal/model"
)

// Preference keys.
const (
	KeyProvider     = "ai_provider"
	KeyOpenAIModel  = "openai_model"
	KeyOpenAIAPIKey = "openai_api_key"
	KeyUsername     = "username"
)

// Store reads and writes preferences backed by a single YAML file. Reads go
// back to the file on every call so a settings change, made here or by
// another process, is visible to the very next read.
type Store struct {
	mu   sync.Mutex
	v    *viper.Viper
	path string

	subs   map[int]func(key, value string)
	nextID int
}

// New opens the preference store at path, creating the parent directory.
// A missing file is not an error; defaults apply until the first Set.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating preference directory: %w", err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault(KeyProvider, string(model.ProviderOpenAI))
	v.SetDefault(KeyOpenAIModel, model.DefaultOpenAIModel)
	s := &Store{v: v, path: path, subs: make(map[int]func(key, value string))}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	err := s.v.ReadInConfig()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading preferences: %w", err)
		}
	}
	return nil
}

// Get returns the stored value for key, or its default when unset.
func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reload(); err != nil {
		return s.v.GetString(key)
	}
	return s.v.GetString(key)
}

// Set stores key=value, writes the file through, and notifies subscribers.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	if err := s.reload(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.v.Set(key, value)
	if err := s.v.WriteConfigAs(s.path); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("writing preferences: %w", err)
	}
	subs := make([]func(key, value string), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(key, value)
	}
	return nil
}

// Subscribe registers fn to run after every successful Set. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(key, value string)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// ProviderContext resolves the provider selection for one outbound call.
// It reads the file fresh so a mid-session settings change takes effect on
// the next call without a restart.
func (s *Store) ProviderContext() model.ProviderContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.reload()
	ctx := model.ProviderContext{
		Provider: model.Provider(s.v.GetString(KeyProvider)),
		Model:    s.v.GetString(KeyOpenAIModel),
		APIKey:   s.v.GetString(KeyOpenAIAPIKey),
	}
	if ctx.Provider != model.ProviderOpenAI && ctx.Provider != model.ProviderLlama {
		ctx.Provider = model.ProviderOpenAI
	}
	if ctx.Model == "" {
		ctx.Model = model.DefaultOpenAIModel
	}
	return ctx
}

// Username returns the stored display name, empty when unset.
func (s *Store) Username() string {
	return s.Get(KeyUsername)
}
