package repository

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fathima-sithara/realtime-service/internal/domain"
)

type seedFile struct {
	Users         []domain.User         `json:"users"`
	Conversations []domain.Conversation `json:"conversations"`
}

// LoadSeed fills the store from a JSON file with users and conversations.
// Used with the memory driver for local runs.
func (s *MemoryStore) LoadSeed(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var f seedFile
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	for i := range f.Users {
		s.PutUser(&f.Users[i])
	}
	for i := range f.Conversations {
		if err := s.PutConversation(&f.Conversations[i]); err != nil {
			return fmt.Errorf("conversation %s: %w", f.Conversations[i].ID, err)
		}
	}
	return nil
}
