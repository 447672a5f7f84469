package parking

import (
	"context"

	"github.com/pkg/errors"

	apperrors "github.com/bikepark/parkclient/internal/errors"
	"github.com/bikepark/parkclient/remote"
)

// RequestExit asks to end the parking session of a bicycle. The bicycle
// must be parked in a zone that accepts exits.
func (c *Controller) RequestExit(bicycleID string) error {
	bike, ok := c.store.Snapshot().Bicycle(bicycleID)
	if !ok {
		return errors.Wrapf(apperrors.ErrUnknownBicycle, "[RequestExit] %s", bicycleID)
	}
	if !bike.Exitable() {
		return errors.Wrapf(apperrors.ErrZoneNotExitable, "[RequestExit] %s in %q", bicycleID, bike.Zone)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.exitBlocked(bicycleID); err != nil {
		return errors.Wrap(err, "[RequestExit]")
	}
	c.exits[bicycleID] = exitConfirming
	return nil
}

// CancelExit withdraws a pending exit request. An exit already in flight
// cannot be cancelled.
func (c *Controller) CancelExit(bicycleID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stage, ok := c.exits[bicycleID]; ok && stage == exitConfirming {
		delete(c.exits, bicycleID)
	}
}

// Exiting reports whether an exit for the bicycle is in flight, or any exit
// at all under the global lock policy.
func (c *Controller) Exiting(bicycleID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitBlocked(bicycleID) != nil
}

// ConfirmExit checks a freshly read balance against the minimum, then ends
// the bicycle's session and pays. On success the session is refreshed so the
// cleared zone and debited balance show up. The returned error is for
// diagnostics; the result always carries a user-facing message.
func (c *Controller) ConfirmExit(ctx context.Context, bicycleID string) (remote.ExitResult, error) {
	if c.store.Snapshot() == nil {
		c.CancelExit(bicycleID)
		return remote.ExitResult{Message: "Sign in to exit."},
			errors.Wrap(apperrors.ErrNotAuthenticated, "[ConfirmExit]")
	}

	c.mu.Lock()
	stage, requested := c.exits[bicycleID]
	if !requested || stage != exitConfirming {
		blocked := c.exitBlocked(bicycleID)
		c.mu.Unlock()
		if blocked != nil {
			return remote.ExitResult{Message: "An exit is already in progress."}, errors.Wrap(blocked, "[ConfirmExit]")
		}
		return remote.ExitResult{Message: "Request the exit before confirming it."},
			errors.Wrapf(apperrors.ErrInvalidTransition, "[ConfirmExit] no exit requested for %s", bicycleID)
	}
	if c.exitLock == ExitLockGlobal && c.exitsInFlight > 0 {
		c.mu.Unlock()
		return remote.ExitResult{Message: "An exit is already in progress."},
			errors.Wrap(apperrors.ErrExitInProgress, "[ConfirmExit]")
	}
	c.exits[bicycleID] = exitInFlight
	c.exitsInFlight++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.exits, bicycleID)
		c.exitsInFlight--
		c.mu.Unlock()
	}()

	result, err := remote.ExitWithBalanceCheck(ctx, c.api, bicycleID, c.minExitBalance)
	if err != nil {
		c.logger.Err(err).Str("bicycle_id", bicycleID).Msg("Exit not completed")
		return result, errors.Wrap(err, "[ConfirmExit]")
	}
	if !result.Success {
		c.logger.Warn().Str("bicycle_id", bicycleID).Str("reason", result.Message).Msg("Exit rejected")
		return result, errors.Wrap(apperrors.ErrExitRejected, "[ConfirmExit] "+result.Message)
	}

	if rerr := c.store.RefreshUserData(ctx); rerr != nil {
		c.logger.Warn().Err(rerr).Msg("Exit succeeded but refresh failed")
	}
	c.logger.Info().Str("bicycle_id", bicycleID).Msg("Exit completed")
	return result, nil
}

// exitBlocked reports why a new exit for bicycleID cannot start. Callers
// hold c.mu.
func (c *Controller) exitBlocked(bicycleID string) error {
	if stage, ok := c.exits[bicycleID]; ok && stage == exitInFlight {
		return apperrors.ErrExitInProgress
	}
	if c.exitLock == ExitLockGlobal && c.exitsInFlight > 0 {
		return apperrors.ErrExitInProgress
	}
	return nil
}
