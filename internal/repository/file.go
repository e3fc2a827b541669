package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/parleyhq/parley/internal/domain"
)

// FileStore is a JSON-file-backed Store. Each collection lives in its own
// file under the root directory; writes go through a temp file and rename
// so a crash never leaves a half-written collection. Suited to development
// and tests; production uses the supabase driver.
type FileStore struct {
	root string
	mu   sync.RWMutex
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "messages"), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{root: dir}, nil
}

// Store returns the repository bundle over this file store.
func (s *FileStore) Store() *Store {
	return &Store{
		Conversations: &fileConversations{s},
		Messages:      &fileMessages{s},
		Playbooks:     &filePlaybooks{s},
		Agents:        &fileAgents{s},
		Organizations: &fileOrganizations{s},
	}
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.root, name+".json")
}

// readJSON loads a collection file into out; a missing file is an empty
// collection, not an error.
func readJSON[T any](s *FileStore, name string) ([]T, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return items, nil
}

// writeJSON atomically replaces a collection file.
func writeJSON[T any](s *FileStore, name string, items []T) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	tmp := s.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp %s: %w", name, err)
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// fileConversations implements ConversationRepo.
type fileConversations struct{ *FileStore }

func (r *fileConversations) Create(_ context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	convs, err := readJSON[*domain.Conversation](r.FileStore, "conversations")
	if err != nil {
		return err
	}
	convs = append(convs, c)
	return writeJSON(r.FileStore, "conversations", convs)
}

func (r *fileConversations) Get(_ context.Context, id domain.ConversationID) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	convs, err := readJSON[*domain.Conversation](r.FileStore, "conversations")
	if err != nil {
		return nil, err
	}
	for _, c := range convs {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
}

func (r *fileConversations) FindByChannelKey(_ context.Context, org domain.OrganizationID, key domain.ChannelKey) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	convs, err := readJSON[*domain.Conversation](r.FileStore, "conversations")
	if err != nil {
		return nil, err
	}
	for _, c := range convs {
		if c.OrganizationID == org && c.ChannelKey == key && c.Status == domain.StatusOpen {
			return c, nil
		}
	}
	return nil, fmt.Errorf("channel %s: %w", key, domain.ErrNotFound)
}

func (r *fileConversations) Update(_ context.Context, c *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	convs, err := readJSON[*domain.Conversation](r.FileStore, "conversations")
	if err != nil {
		return err
	}
	for i, existing := range convs {
		if existing.ID == c.ID {
			convs[i] = c
			return writeJSON(r.FileStore, "conversations", convs)
		}
	}
	return fmt.Errorf("conversation %s: %w", c.ID, domain.ErrNotFound)
}

func (r *fileConversations) ListEligible(_ context.Context) ([]*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	convs, err := readJSON[*domain.Conversation](r.FileStore, "conversations")
	if err != nil {
		return nil, err
	}
	var eligible []*domain.Conversation
	for _, c := range convs {
		if c.Status == domain.StatusOpen && c.NeedsProcessing {
			eligible = append(eligible, c)
		}
	}
	return eligible, nil
}

// fileMessages implements MessageRepo. Messages are partitioned per
// conversation.
type fileMessages struct{ *FileStore }

func (r *fileMessages) collection(conv domain.ConversationID) string {
	return filepath.Join("messages", string(conv))
}

func (r *fileMessages) Append(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs, err := readJSON[*domain.Message](r.FileStore, r.collection(m.ConversationID))
	if err != nil {
		return err
	}
	msgs = append(msgs, m)
	return writeJSON(r.FileStore, r.collection(m.ConversationID), msgs)
}

func (r *fileMessages) Update(_ context.Context, m *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs, err := readJSON[*domain.Message](r.FileStore, r.collection(m.ConversationID))
	if err != nil {
		return err
	}
	for i, existing := range msgs {
		if existing.ID == m.ID {
			msgs[i] = m
			return writeJSON(r.FileStore, r.collection(m.ConversationID), msgs)
		}
	}
	return fmt.Errorf("message %s: %w", m.ID, domain.ErrNotFound)
}

func (r *fileMessages) List(_ context.Context, conv domain.ConversationID) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs, err := readJSON[*domain.Message](r.FileStore, r.collection(conv))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs, nil
}

// filePlaybooks implements PlaybookRepo.
type filePlaybooks struct{ *FileStore }

func (r *filePlaybooks) Get(_ context.Context, id domain.PlaybookID) (*domain.Playbook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pbs, err := readJSON[*domain.Playbook](r.FileStore, "playbooks")
	if err != nil {
		return nil, err
	}
	for _, p := range pbs {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("playbook %s: %w", id, domain.ErrNotFound)
}

func (r *filePlaybooks) ListActive(_ context.Context, org domain.OrganizationID) ([]*domain.Playbook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pbs, err := readJSON[*domain.Playbook](r.FileStore, "playbooks")
	if err != nil {
		return nil, err
	}
	var active []*domain.Playbook
	for _, p := range pbs {
		if p.OrganizationID == org && p.Active {
			active = append(active, p)
		}
	}
	return active, nil
}

// fileAgents implements AgentRepo.
type fileAgents struct{ *FileStore }

func (r *fileAgents) ListOnline(_ context.Context, org domain.OrganizationID) ([]*domain.HumanAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agents, err := readJSON[*domain.HumanAgent](r.FileStore, "agents")
	if err != nil {
		return nil, err
	}
	var online []*domain.HumanAgent
	for _, a := range agents {
		if a.OrganizationID == org && a.Online {
			online = append(online, a)
		}
	}
	return online, nil
}

// fileOrganizations implements OrganizationRepo.
type fileOrganizations struct{ *FileStore }

func (r *fileOrganizations) Get(_ context.Context, id domain.OrganizationID) (*domain.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orgs, err := readJSON[*domain.Organization](r.FileStore, "organizations")
	if err != nil {
		return nil, err
	}
	for _, o := range orgs {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, fmt.Errorf("organization %s: %w", id, domain.ErrNotFound)
}

// Seed helpers keep tests and dev bootstrap out of the read path.

// SeedOrganizations writes the organizations collection wholesale.
func (s *FileStore) SeedOrganizations(orgs []*domain.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s, "organizations", orgs)
}

// SeedPlaybooks writes the playbooks collection wholesale.
func (s *FileStore) SeedPlaybooks(pbs []*domain.Playbook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s, "playbooks", pbs)
}

// SeedAgents writes the agents collection wholesale.
func (s *FileStore) SeedAgents(agents []*domain.HumanAgent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s, "agents", agents)
}
