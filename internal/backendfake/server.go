// Package backendfake is an in-memory implementation of the parking
// backend's cookie-based REST API. It backs the integration tests of the
// remote package and the cmd/fakebackend demo server.
package backendfake

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bikepark/parkclient/remote"
)

const (
	// BasePath is the prefix every route is mounted under.
	BasePath = "/api"

	// SessionCookie is the name of the cookie carrying the session id.
	SessionCookie = "connect.sid"

	// DefaultExitFee is debited from the wallet on every exit.
	DefaultExitFee = 10.0
)

type Server struct {
	store   *store
	router  chi.Router
	logger  zerolog.Logger
	exitFee float64
	colour  bool
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithExitFee(fee float64) Option {
	return func(s *Server) {
		s.exitFee = fee
	}
}

// WithColour colours the HTTP method in request logs.
func WithColour(enabled bool) Option {
	return func(s *Server) {
		s.colour = enabled
	}
}

// WithNowTime sets the clock used for transaction timestamps (primarily for testing)
func WithNowTime(now func() time.Time) Option {
	return func(s *Server) {
		s.store.now = now
	}
}

func New(options ...Option) *Server {
	s := &Server{
		store:   newStore(time.Now),
		logger:  log.Logger,
		exitFee: DefaultExitFee,
	}
	for _, opt := range options {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddAccount registers (or replaces) an account. Cycles without an ID are
// given a random one.
func (s *Server) AddAccount(a Account) {
	s.store.upsert(a)
}

// Fail forces every request to route (one of the remote.Route constants) to
// answer with status. A zero status clears the failure.
func (s *Server) Fail(route string, status int) {
	s.store.setFailure(route, status)
}

// Account returns a copy of the account registered for phone.
func (s *Server) Account(phone string) (Account, bool) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	acc, ok := s.store.accounts[phone]
	if !ok {
		return Account{}, false
	}
	out := acc.Account
	out.Cycles = append([]Cycle(nil), acc.Cycles...)
	return out, true
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(s.failureMiddleware)

	r.Route(BasePath, func(r chi.Router) {
		r.Post(remote.RouteLogin, s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get(remote.RouteProfile, s.handleProfile)
			r.Get(remote.RouteCardDetails, s.handleCardDetails)
			r.Post(remote.RouteLogout, s.handleLogout)
			r.Put(remote.RouteUpdateEntry, s.handleUpdateEntry)
			r.Put(remote.RouteExitAndPay, s.handleExit)
		})
	})
	return r
}

type message struct {
	Message string `json:"message"`
}

type loginRequest struct {
	UserPhone    string `json:"userPhone"`
	UserPassword string `json:"userPassword"`
}

type cycleRequest struct {
	CycleID string `json:"cycleId"`
	ZoneID  string `json:"zoneId"`
}

type userCycle struct {
	CycleID string `json:"cycleId"`
	ZoneID  string `json:"zoneId"`
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || !s.store.view(c.Value, func(*account) {}) {
			writeJSON(w, http.StatusUnauthorized, message{Message: "Not logged in"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withSessionID(r.Context(), c.Value)))
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, message{Message: "Invalid request body"})
		return
	}

	sid, ok := s.store.login(req.UserPhone, req.UserPassword)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, message{Message: "Invalid phone number or password"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, message{Message: "Login successful"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.logout(sessionID(r.Context()))
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, message{Message: "Logged out"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var resp struct {
		Data struct {
			User struct {
				UserName string `json:"userName,omitempty"`
				Phone    string `json:"userPhone"`
			} `json:"user"`
			UserCycles []userCycle `json:"userCycles"`
		} `json:"data"`
	}

	s.store.view(sessionID(r.Context()), func(a *account) {
		resp.Data.User.UserName = a.Name
		resp.Data.User.Phone = a.Phone
		resp.Data.UserCycles = make([]userCycle, 0, len(a.Cycles))
		for _, c := range a.Cycles {
			resp.Data.UserCycles = append(resp.Data.UserCycles, userCycle{CycleID: c.ID, ZoneID: c.Zone})
		}
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCardDetails(w http.ResponseWriter, r *http.Request) {
	var resp struct {
		Data struct {
			CurrentBalance float64       `json:"currentBalance"`
			Credit         []transaction `json:"credit"`
			Debit          []transaction `json:"debit"`
		} `json:"data"`
	}

	s.store.view(sessionID(r.Context()), func(a *account) {
		resp.Data.CurrentBalance = a.Balance
		resp.Data.Credit = append([]transaction{}, a.credit...)
		resp.Data.Debit = append([]transaction{}, a.debit...)
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req cycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CycleID == "" || strings.TrimSpace(req.ZoneID) == "" {
		writeJSON(w, http.StatusBadRequest, message{Message: "cycleId and zoneId are required"})
		return
	}

	found := false
	s.store.update(sessionID(r.Context()), func(a *account) {
		if c := a.cycle(req.CycleID); c != nil {
			c.Zone = strings.TrimSpace(req.ZoneID)
			found = true
		}
	})
	if !found {
		writeJSON(w, http.StatusNotFound, message{Message: "Cycle not found"})
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "Zone updated"})
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	var req cycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CycleID == "" {
		writeJSON(w, http.StatusBadRequest, message{Message: "cycleId is required"})
		return
	}

	status, msg := http.StatusOK, "Exit successful"
	s.store.update(sessionID(r.Context()), func(a *account) {
		c := a.cycle(req.CycleID)
		switch {
		case c == nil:
			status, msg = http.StatusNotFound, "Cycle not found"
		case c.Zone == "" || c.Zone == remote.ZoneNone:
			status, msg = http.StatusBadRequest, "Cycle is not parked"
		case a.Balance < s.exitFee:
			status, msg = http.StatusPaymentRequired, "Insufficient balance"
		default:
			a.Balance -= s.exitFee
			a.debit = append(a.debit, transaction{
				Amount:      s.exitFee,
				Description: "Parking fee, zone " + c.Zone,
				CreatedAt:   s.store.now().UTC().Format(time.RFC3339),
			})
			c.Zone = remote.ZoneNone
		}
	})
	writeJSON(w, status, message{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

func routeKey(path string) string {
	return strings.TrimPrefix(path, BasePath)
}
