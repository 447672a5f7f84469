package parking

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bikepark/parkclient/internal/config"
	apperrors "github.com/bikepark/parkclient/internal/errors"
	"github.com/bikepark/parkclient/remote"
	"github.com/bikepark/parkclient/session"
)

// Camera grants access to the code scanner. Decoded payloads are pushed to
// Controller.OnDecoded by whoever drives the scanner.
type Camera interface {
	RequestPermission(ctx context.Context) (bool, error)
}

// SessionStore is the part of session.Store the controller needs.
type SessionStore interface {
	Snapshot() *session.Snapshot
	RefreshUserData(ctx context.Context) error
	Subscribe(fn func(session.State)) func()
}

var _ SessionStore = (*session.Store)(nil)

type exitStage int

const (
	exitConfirming exitStage = iota
	exitInFlight
)

// Controller drives the park workflow (select, scan, confirm, update zone)
// and the exit-and-pay workflow. Network calls run without holding the
// controller's lock; results belonging to a reset attempt are discarded.
// Signing out resets the attempt and drops pending exit requests.
type Controller struct {
	api            remote.API
	store          SessionStore
	camera         Camera
	logger         zerolog.Logger
	minExitBalance float64
	exitLock       ExitLockPolicy

	mu                sync.Mutex
	attempt           Attempt
	scanned           bool // a decode has been accepted for this attempt
	permissionGranted bool
	exits             map[string]exitStage
	exitsInFlight     int

	unsubscribe func()
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

func WithLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithMinExitBalance sets the balance required before an exit is attempted.
func WithMinExitBalance(v float64) ControllerOption {
	return func(c *Controller) {
		c.minExitBalance = v
	}
}

func WithExitLock(policy ExitLockPolicy) ControllerOption {
	return func(c *Controller) {
		c.exitLock = policy
	}
}

func NewController(api remote.API, store SessionStore, camera Camera, options ...ControllerOption) (*Controller, error) {
	if api == nil {
		return nil, errors.New("[NewController] api is required")
	}
	if store == nil {
		return nil, errors.New("[NewController] store is required")
	}
	if camera == nil {
		return nil, errors.New("[NewController] camera is required")
	}

	c := &Controller{
		api:            api,
		store:          store,
		camera:         camera,
		logger:         log.Logger,
		minExitBalance: config.DefaultMinExitBalance,
		exitLock:       ExitLockPerBicycle,
		exits:          make(map[string]exitStage),
	}
	for _, opt := range options {
		opt(c)
	}
	c.attempt = Attempt{ID: uuid.New().String(), State: StateIdle}
	c.unsubscribe = store.Subscribe(c.onSessionChange)
	return c, nil
}

// Close stops following the session store.
func (c *Controller) Close() {
	c.unsubscribe()
}

// onSessionChange forgets everything tied to the signed-out user. Exits
// already in flight finish on their own; their refresh is a no-op.
func (c *Controller) onSessionChange(state session.State) {
	if state.Authenticated {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pending := false
	for id, stage := range c.exits {
		if stage == exitConfirming {
			delete(c.exits, id)
			pending = true
		}
	}
	if c.attempt.State == StateIdle && !c.permissionGranted && !pending {
		return
	}
	c.logger.Debug().Str("state", c.attempt.State.String()).Msg("Signed out, scan attempt reset")
	c.permissionGranted = false
	c.reset(StateIdle, "")
}

// Attempt returns the current scan attempt.
func (c *Controller) Attempt() Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// BeginScan starts a new scan attempt. It fails without changing state when
// the user owns no bicycles.
func (c *Controller) BeginScan() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt.State != StateIdle {
		return c.invalidTransition("BeginScan")
	}

	snap := c.store.Snapshot()
	if snap == nil || len(snap.Bicycles) == 0 {
		c.attempt.Message = "You have no registered bicycles to park."
		return errors.Wrap(apperrors.ErrNoBicycles, "[BeginScan]")
	}

	c.reset(StateAwaitingBicycleSelection, "Select the bicycle you are parking.")
	return nil
}

// SelectBicycle picks the bicycle for this attempt and asks for camera
// access if it has not been granted yet.
func (c *Controller) SelectBicycle(ctx context.Context, bicycleID string) error {
	c.mu.Lock()
	if c.attempt.State != StateAwaitingBicycleSelection {
		defer c.mu.Unlock()
		return c.invalidTransition("SelectBicycle")
	}
	if _, ok := c.store.Snapshot().Bicycle(bicycleID); !ok {
		c.mu.Unlock()
		return errors.Wrapf(apperrors.ErrUnknownBicycle, "[SelectBicycle] %s", bicycleID)
	}

	c.attempt.BicycleID = bicycleID
	c.attempt.State = StateAwaitingPermission
	attemptID := c.attempt.ID
	granted := c.permissionGranted
	c.mu.Unlock()

	var err error
	if !granted {
		granted, err = c.camera.RequestPermission(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt.ID != attemptID {
		return errors.Wrap(apperrors.ErrStaleAttempt, "[SelectBicycle]")
	}
	if err != nil || !granted {
		c.logger.Warn().Err(err).Msg("Camera permission not granted")
		c.reset(StateIdle, "Camera permission is required to scan the zone code.")
		if err != nil {
			return errors.Wrap(apperrors.ErrPermissionDenied, "[SelectBicycle] "+err.Error())
		}
		return errors.Wrap(apperrors.ErrPermissionDenied, "[SelectBicycle]")
	}

	c.permissionGranted = true
	c.attempt.State = StateScanning
	c.attempt.Message = "Scan the zone code."
	return nil
}

// OnDecoded offers a decoded scanner payload. Only the first decode of an
// attempt is accepted; it reports whether this one was.
func (c *Controller) OnDecoded(payload string) bool {
	zone := strings.TrimSpace(payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt.State != StateScanning || c.scanned || zone == "" {
		return false
	}

	c.scanned = true
	c.attempt.ZoneID = zone
	c.attempt.State = StateAwaitingConfirmation
	c.attempt.Message = fmt.Sprintf("Park bicycle %s in zone %s?", c.attempt.BicycleID, zone)
	c.logger.Debug().Str("bicycle_id", c.attempt.BicycleID).Str("zone_id", zone).Msg("Zone code decoded")
	return true
}

// CancelZoneUpdate rejects the decoded zone and re-arms the scanner.
func (c *Controller) CancelZoneUpdate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt.State != StateAwaitingConfirmation {
		return c.invalidTransition("CancelZoneUpdate")
	}
	c.rearm("Scan the zone code.")
	return nil
}

// ConfirmZoneUpdate sends the decoded zone to the backend. On success the
// session is refreshed and the attempt ends; on failure the scanner is
// re-armed so the user can try again.
func (c *Controller) ConfirmZoneUpdate(ctx context.Context) error {
	c.mu.Lock()
	if c.attempt.State != StateAwaitingConfirmation {
		defer c.mu.Unlock()
		return c.invalidTransition("ConfirmZoneUpdate")
	}
	if c.store.Snapshot() == nil {
		c.reset(StateIdle, "")
		c.mu.Unlock()
		return errors.Wrap(apperrors.ErrNotAuthenticated, "[ConfirmZoneUpdate]")
	}
	c.attempt.State = StateUpdating
	c.attempt.Message = "Updating zone..."
	attemptID, bicycleID, zoneID := c.attempt.ID, c.attempt.BicycleID, c.attempt.ZoneID
	c.mu.Unlock()

	ok, err := c.api.UpdateZone(ctx, bicycleID, zoneID)

	if err == nil && ok {
		if rerr := c.store.RefreshUserData(ctx); rerr != nil {
			c.logger.Warn().Err(rerr).Msg("Zone updated but refresh failed")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attempt.ID != attemptID {
		c.logger.Debug().Str("bicycle_id", bicycleID).Msg("Scan attempt reset, zone update result discarded")
		return errors.Wrap(apperrors.ErrStaleAttempt, "[ConfirmZoneUpdate]")
	}

	switch {
	case err != nil:
		c.logger.Err(err).Str("bicycle_id", bicycleID).Str("zone_id", zoneID).Msg("Zone update failed")
		c.rearm("An error occurred while updating the zone. Please scan again.")
		return errors.Wrap(err, "[ConfirmZoneUpdate]")
	case !ok:
		c.rearm("Failed to update the zone. Please scan again.")
		return errors.Wrapf(apperrors.ErrZoneUpdateRejected, "[ConfirmZoneUpdate] %s -> %s", bicycleID, zoneID)
	}

	c.logger.Info().Str("bicycle_id", bicycleID).Str("zone_id", zoneID).Msg("Zone updated")
	c.reset(StateIdle, fmt.Sprintf("Bicycle %s parked in zone %s.", bicycleID, zoneID))
	return nil
}

// Cancel abandons the current attempt from any state. A zone update still in
// flight runs to completion but its result is discarded.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset(StateIdle, "")
}

// reset starts a fresh attempt in state. Callers hold c.mu.
func (c *Controller) reset(state ScanState, message string) {
	c.attempt = Attempt{ID: uuid.New().String(), State: state, Message: message}
	c.scanned = false
}

// rearm returns to scanning within the same attempt. Callers hold c.mu.
func (c *Controller) rearm(message string) {
	c.attempt.State = StateScanning
	c.attempt.ZoneID = ""
	c.attempt.Message = message
	c.scanned = false
}

func (c *Controller) invalidTransition(op string) error {
	return errors.Wrapf(apperrors.ErrInvalidTransition, "[%s] from %s", op, c.attempt.State)
}
