package backendfake

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Account is a registered user of the fake backend.
type Account struct {
	Phone    string
	Password string
	Name     string
	Balance  float64
	Cycles   []Cycle
}

type Cycle struct {
	ID   string
	Zone string
}

type transaction struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"createdAt"`
}

type account struct {
	Account
	credit []transaction
	debit  []transaction
}

// store holds accounts and cookie sessions.
type store struct {
	mu       sync.RWMutex
	accounts map[string]*account // phone -> account
	sessions map[string]string   // session id -> phone
	failures map[string]int      // route -> forced status
	now      func() time.Time
}

func newStore(now func() time.Time) *store {
	return &store{
		accounts: make(map[string]*account),
		sessions: make(map[string]string),
		failures: make(map[string]int),
		now:      now,
	}
}

func (s *store) upsert(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.Cycles = append([]Cycle(nil), a.Cycles...)
	for i := range a.Cycles {
		if a.Cycles[i].ID == "" {
			a.Cycles[i].ID = uuid.New().String()
		}
	}

	acc := &account{Account: a}
	if a.Balance > 0 {
		acc.credit = append(acc.credit, transaction{
			Amount:      a.Balance,
			Description: "Opening balance",
			CreatedAt:   s.now().UTC().Format(time.RFC3339),
		})
	}
	s.accounts[a.Phone] = acc
}

func (s *store) login(phone, password string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[phone]
	if !ok || acc.Password != password {
		return "", false
	}
	sid := uuid.New().String()
	s.sessions[sid] = phone
	return sid, true
}

func (s *store) logout(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
}

// view runs fn on the session's account under a read lock.
func (s *store) view(sid string, fn func(*account)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc := s.accountFor(sid)
	if acc == nil {
		return false
	}
	fn(acc)
	return true
}

// update runs fn on the session's account under a write lock.
func (s *store) update(sid string, fn func(*account)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accountFor(sid)
	if acc == nil {
		return false
	}
	fn(acc)
	return true
}

func (s *store) accountFor(sid string) *account {
	phone, ok := s.sessions[sid]
	if !ok {
		return nil
	}
	return s.accounts[phone]
}

func (s *store) setFailure(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

func (s *store) failure(route string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failures[route]
}

func (a *account) cycle(id string) *Cycle {
	for i := range a.Cycles {
		if a.Cycles[i].ID == id {
			return &a.Cycles[i]
		}
	}
	return nil
}
