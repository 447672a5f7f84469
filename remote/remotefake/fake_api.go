package remotefake

import (
	"context"
	"errors"
	"sync"

	"github.com/bikepark/parkclient/remote"
)

var _ remote.API = (*FakeAPI)(nil)

// FakeAPI is an in-memory remote.API. Fields ending in Err are returned by
// the matching operation when set; the Reject flags simulate non-2xx answers.
type FakeAPI struct {
	lock sync.RWMutex

	Phone    string
	Password string

	Name     string
	Bicycles []remote.Bicycle
	Balance  *float64
	History  remote.PaymentHistory
	ExitFee  float64

	LoginErr    error
	ProfileErr  error
	BalanceErr  error
	HistoryErr  error
	LogoutErr   error
	UpdateErr   error
	ExitErr     error
	RejectZone  bool
	RejectExit  string // non-empty: Exit answers unsuccessfully with this message
	gates       map[string]chan struct{}
	loggedIn    bool
	calls       map[string]int
	zoneUpdates []ZoneUpdate
}

type ZoneUpdate struct {
	BicycleID string
	ZoneID    string
}

func NewFakeAPI(phone, password string) *FakeAPI {
	return &FakeAPI{
		Phone:    phone,
		Password: password,
		calls:    make(map[string]int),
		gates:    make(map[string]chan struct{}),
	}
}

// Block makes every later call to the named operations wait until the
// returned channel is closed.
func (f *FakeAPI) Block(ops ...string) chan struct{} {
	f.lock.Lock()
	defer f.lock.Unlock()

	gate := make(chan struct{})
	for _, op := range ops {
		f.gates[op] = gate
	}
	return gate
}

func (f *FakeAPI) SetBalance(v float64) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Balance = &v
}

func (f *FakeAPI) SetBicycles(bikes ...remote.Bicycle) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Bicycles = append([]remote.Bicycle(nil), bikes...)
}

// Calls returns how many times op was invoked.
func (f *FakeAPI) Calls(op string) int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.calls[op]
}

func (f *FakeAPI) ZoneUpdates() []ZoneUpdate {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]ZoneUpdate(nil), f.zoneUpdates...)
}

func (f *FakeAPI) LoggedIn() bool {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.loggedIn
}

// enter records the call and, when the operation is blocked, waits until
// the gate is released or ctx ends.
func (f *FakeAPI) enter(ctx context.Context, op string) error {
	f.lock.Lock()
	f.calls[op]++
	gate := f.gates[op]
	f.lock.Unlock()

	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeAPI) Login(ctx context.Context, phoneNumber, password string) (bool, error) {
	if err := f.enter(ctx, "Login"); err != nil {
		return false, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.LoginErr != nil {
		return false, f.LoginErr
	}
	if phoneNumber != f.Phone || password != f.Password {
		return false, nil
	}
	f.loggedIn = true
	return true, nil
}

func (f *FakeAPI) GetProfile(ctx context.Context) (*remote.Profile, error) {
	if err := f.enter(ctx, "GetProfile"); err != nil {
		return nil, err
	}
	f.lock.RLock()
	defer f.lock.RUnlock()

	if f.ProfileErr != nil {
		return nil, f.ProfileErr
	}
	if !f.loggedIn {
		return nil, &remote.StatusError{Op: "GetProfile", StatusCode: 401}
	}
	return &remote.Profile{
		Name:     f.Name,
		Bicycles: append(make([]remote.Bicycle, 0, len(f.Bicycles)), f.Bicycles...),
	}, nil
}

func (f *FakeAPI) GetBalance(ctx context.Context) (*float64, error) {
	if err := f.enter(ctx, "GetBalance"); err != nil {
		return nil, err
	}
	f.lock.RLock()
	defer f.lock.RUnlock()

	if f.BalanceErr != nil {
		return nil, f.BalanceErr
	}
	if !f.loggedIn {
		return nil, &remote.StatusError{Op: "GetBalance", StatusCode: 401}
	}
	if f.Balance == nil {
		return nil, nil
	}
	v := *f.Balance
	return &v, nil
}

func (f *FakeAPI) GetPaymentHistory(ctx context.Context) (*remote.PaymentHistory, error) {
	if err := f.enter(ctx, "GetPaymentHistory"); err != nil {
		return nil, err
	}
	f.lock.RLock()
	defer f.lock.RUnlock()

	if f.HistoryErr != nil {
		return nil, f.HistoryErr
	}
	if !f.loggedIn {
		return nil, &remote.StatusError{Op: "GetPaymentHistory", StatusCode: 401}
	}
	return &remote.PaymentHistory{
		Credit: append([]remote.Transaction{}, f.History.Credit...),
		Debit:  append([]remote.Transaction{}, f.History.Debit...),
	}, nil
}

func (f *FakeAPI) Logout(ctx context.Context) error {
	if err := f.enter(ctx, "Logout"); err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	// A failed logout never reached the backend, so the session survives.
	if f.LogoutErr != nil {
		return f.LogoutErr
	}
	f.loggedIn = false
	return nil
}

func (f *FakeAPI) UpdateZone(ctx context.Context, bicycleID, zoneID string) (bool, error) {
	if err := f.enter(ctx, "UpdateZone"); err != nil {
		return false, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.UpdateErr != nil {
		return false, f.UpdateErr
	}
	if f.RejectZone || !f.loggedIn {
		return false, nil
	}
	for i := range f.Bicycles {
		if f.Bicycles[i].ID == bicycleID {
			f.Bicycles[i].Zone = zoneID
			f.zoneUpdates = append(f.zoneUpdates, ZoneUpdate{BicycleID: bicycleID, ZoneID: zoneID})
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeAPI) Exit(ctx context.Context, bicycleID string) (remote.ExitResult, error) {
	if err := f.enter(ctx, "Exit"); err != nil {
		return remote.ExitResult{}, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.ExitErr != nil {
		return remote.ExitResult{}, f.ExitErr
	}
	if f.RejectExit != "" {
		return remote.ExitResult{Success: false, Message: f.RejectExit}, nil
	}
	for i := range f.Bicycles {
		if f.Bicycles[i].ID != bicycleID {
			continue
		}
		f.Bicycles[i].Zone = remote.ZoneNone
		if f.Balance != nil {
			v := *f.Balance - f.ExitFee
			f.Balance = &v
		}
		f.History.Debit = append(f.History.Debit, remote.Transaction{Amount: f.ExitFee, Description: "Parking exit " + bicycleID})
		return remote.ExitResult{Success: true, Message: "Exit successful"}, nil
	}
	return remote.ExitResult{Success: false, Message: "cycle not found"}, nil
}

// ErrNetwork is a convenience transport failure for tests.
var ErrNetwork = errors.New("network unreachable")
