package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/bikepark/parkclient/internal/errors"
	"github.com/bikepark/parkclient/internal/validation"
	"github.com/bikepark/parkclient/remote"
)

// State is an immutable view of the store handed to observers.
type State struct {
	Authenticated bool
	Loading       bool
	Snapshot      *Snapshot // nil when not authenticated
}

// SignOutResult separates the local outcome of a sign-out, which always
// succeeds, from the best-effort remote revoke.
type SignOutResult struct {
	LocalCleared  bool
	RemoteRevoked bool
	RemoteErr     error
}

type observer struct {
	id int
	fn func(State)
}

// Store owns the sign-in lifecycle and the user snapshot. It is created once
// and reset to the signed-out state rather than discarded.
type Store struct {
	api    remote.API
	logger zerolog.Logger

	mu            sync.RWMutex
	authenticated bool
	snapshot      *Snapshot
	inflight      int    // operations holding the loading flag
	signingIn     bool   // guards against overlapping sign-in attempts
	generation    uint64 // bumped whenever the session is replaced or cleared

	refreshes singleflight.Group

	observerMu   sync.Mutex
	observers    []observer
	nextObserver int
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a signed-out Store backed by api.
func NewStore(api remote.API, options ...StoreOption) (*Store, error) {
	if api == nil {
		return nil, errors.New("[NewStore] api is required")
	}

	s := &Store{
		api:    api,
		logger: log.Logger,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// SignIn logs in and builds the first snapshot. It reports false on any
// failure and never leaves the store half authenticated.
func (s *Store) SignIn(ctx context.Context, phoneNumber, password string) bool {
	return s.Authenticate(ctx, phoneNumber, password) == nil
}

// Authenticate is SignIn with the failure reason. Bad credentials wrap
// ErrInvalidCredentials, rejected input wraps ErrInvalidInput and an
// overlapping attempt wraps ErrBusy; anything else is a transport or parse
// failure.
func (s *Store) Authenticate(ctx context.Context, phoneNumber, password string) error {
	if err := validation.ValidateLogin(phoneNumber, password); err != nil {
		return errors.Wrap(err, "[Authenticate]")
	}

	s.mu.Lock()
	if s.signingIn {
		s.mu.Unlock()
		return errors.Wrap(apperrors.ErrBusy, "[Authenticate] sign-in already in progress")
	}
	s.signingIn = true
	s.inflight++
	generation := s.generation
	s.mu.Unlock()
	s.notify()

	snap, err := s.signIn(ctx, phoneNumber, password)

	s.mu.Lock()
	s.signingIn = false
	s.inflight--
	if err == nil && s.generation != generation {
		err = errors.New("[Authenticate] session was reset during sign-in")
	}
	if err == nil {
		s.authenticated = true
		s.snapshot = snap
		s.generation++
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Err(err).Msg("Sign in failed")
		return err
	}
	s.logger.Info().Int("bicycles", len(snap.Bicycles)).Msg("Signed in")
	return nil
}

func (s *Store) signIn(ctx context.Context, phoneNumber, password string) (*Snapshot, error) {
	s.logger.Debug().Str("phone", phoneNumber).Msg("Attempting login")

	ok, err := s.api.Login(ctx, phoneNumber, password)
	if err != nil {
		return nil, errors.Wrap(err, "[Authenticate] login")
	}
	if !ok {
		return nil, errors.Wrap(apperrors.ErrInvalidCredentials, "[Authenticate]")
	}

	profile, balance, err := s.fetch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Authenticate]")
	}
	return fold(profile, balance, phoneNumber, ""), nil
}

// fetch loads the profile and the balance concurrently and waits for both.
func (s *Store) fetch(ctx context.Context) (*remote.Profile, *float64, error) {
	var (
		profile *remote.Profile
		balance *float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.api.GetProfile(gctx)
		if err != nil {
			return errors.Wrap(err, "fetching profile")
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		b, err := s.api.GetBalance(gctx)
		if err != nil {
			return errors.Wrap(err, "fetching balance")
		}
		balance = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return profile, balance, nil
}

// RefreshUserData rebuilds the snapshot from fresh profile and balance
// reads, keeping the phone number from sign-in. It does nothing when signed
// out. On failure the previous snapshot stays in place and the error is
// returned for display only. Concurrent calls share one backend round; the
// round is not cancelled with any one caller's ctx, each caller stops
// waiting when its own ctx ends.
func (s *Store) RefreshUserData(ctx context.Context) error {
	s.mu.RLock()
	authenticated := s.authenticated
	s.mu.RUnlock()
	if !authenticated {
		s.logger.Debug().Msg("Not signed in, skipping refresh")
		return nil
	}

	shared := context.WithoutCancel(ctx)
	result := s.refreshes.DoChan("refresh", func() (interface{}, error) {
		return nil, s.refresh(shared)
	})
	select {
	case res := <-result:
		return res.Err
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "[RefreshUserData]")
	}
}

func (s *Store) refresh(ctx context.Context) error {
	s.mu.Lock()
	if !s.authenticated {
		s.mu.Unlock()
		return nil
	}
	s.inflight++
	generation := s.generation
	s.mu.Unlock()
	s.notify()

	profile, balance, err := s.fetch(ctx)

	s.mu.Lock()
	s.inflight--
	stale := s.generation != generation || !s.authenticated
	if err == nil && !stale {
		prev := s.snapshot
		s.snapshot = fold(profile, balance, prev.PhoneNumber, prev.Name)
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Err(err).Msg("Failed to refresh user data")
		return errors.Wrap(err, "[RefreshUserData]")
	}
	if stale {
		s.logger.Debug().Msg("Session changed during refresh, result discarded")
	}
	return nil
}

// SignOut revokes the session remotely and always clears it locally. A
// remote failure is logged and reported in the result, never returned.
func (s *Store) SignOut(ctx context.Context) SignOutResult {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	s.notify()

	err := s.api.Logout(ctx)

	s.mu.Lock()
	s.authenticated = false
	s.snapshot = nil
	s.generation++
	s.inflight--
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Warn().Err(err).Msg("Logout call failed, session cleared locally")
	} else {
		s.logger.Info().Msg("Signed out")
	}
	return SignOutResult{LocalCleared: true, RemoteRevoked: err == nil, RemoteErr: err}
}

// PaymentHistory fetches the card's credit and debit entries.
func (s *Store) PaymentHistory(ctx context.Context) (*remote.PaymentHistory, error) {
	if !s.Authenticated() {
		return nil, errors.Wrap(apperrors.ErrNotAuthenticated, "[PaymentHistory]")
	}

	history, err := s.api.GetPaymentHistory(ctx)
	if err != nil {
		s.logger.Err(err).Msg("Failed to fetch payment history")
		return nil, errors.Wrap(err, "[PaymentHistory]")
	}
	return history, nil
}

func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Snapshot returns a copy of the current snapshot, or nil when signed out.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.clone()
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Authenticated: s.authenticated,
		Loading:       s.inflight > 0,
		Snapshot:      s.snapshot.clone(),
	}
}

// Subscribe registers fn to be called with the new state after every
// change. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()

	id := s.nextObserver
	s.nextObserver++
	s.observers = append(s.observers, observer{id: id, fn: fn})

	return func() {
		s.observerMu.Lock()
		defer s.observerMu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify() {
	s.observerMu.Lock()
	observers := append([]observer(nil), s.observers...)
	s.observerMu.Unlock()
	if len(observers) == 0 {
		return
	}

	state := s.State()
	for _, o := range observers {
		o.fn(state)
	}
}
