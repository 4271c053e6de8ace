// Package teams tracks ad-hoc user teams. Membership is exclusive: a
// user belongs to at most one team at a time.
package teams

import (
	"sort"
	"sync"
)

// Team is a named group of users.
type Team struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// Manager is the in-memory team registry.
type Manager struct {
	mu     sync.Mutex
	teams  map[string][]string // name -> member user ids
	member map[string]string   // userID -> team name
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{
		teams:  make(map[string][]string),
		member: make(map[string]string),
	}
}

// Create registers a team with userID as its first member.
func (m *Manager) Create(name, userID string) error {
	if name == "" {
		return ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.teams[name]; ok {
		return ErrTeamExists
	}
	if _, ok := m.member[userID]; ok {
		return ErrAlreadyInTeam
	}

	m.teams[name] = []string{userID}
	m.member[userID] = name
	return nil
}

// Join adds userID to an existing team.
func (m *Manager) Join(name, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.teams[name]
	if !ok {
		return ErrTeamNotFound
	}
	if _, ok := m.member[userID]; ok {
		return ErrAlreadyInTeam
	}

	m.teams[name] = append(members, userID)
	m.member[userID] = name
	return nil
}

// Leave removes userID from their team, disbanding it when empty.
func (m *Manager) Leave(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, ok := m.member[userID]
	if !ok {
		return ErrNotInTeam
	}

	members := m.teams[name]
	for i, uid := range members {
		if uid == userID {
			m.teams[name] = append(members[:i], members[i+1:]...)
			break
		}
	}
	delete(m.member, userID)

	if len(m.teams[name]) == 0 {
		delete(m.teams, name)
	}
	return nil
}

// TeamOf returns the name of userID's team.
func (m *Manager) TeamOf(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, ok := m.member[userID]
	return name, ok
}

// TeamFor returns the full team userID belongs to.
func (m *Manager) TeamFor(userID string) (Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, ok := m.member[userID]
	if !ok {
		return Team{}, ErrNotInTeam
	}
	return Team{
		Name:    name,
		Members: append([]string(nil), m.teams[name]...),
	}, nil
}

// List returns all teams sorted by name, members in join order.
func (m *Manager) List() []Team {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Team, 0, len(m.teams))
	for name, members := range m.teams {
		out = append(out, Team{
			Name:    name,
			Members: append([]string(nil), members...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
