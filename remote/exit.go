package remote

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	apperrors "github.com/bikepark/parkclient/internal/errors"
)

// ExitWithBalanceCheck reads a fresh balance and only calls Exit when the
// balance is known and at least minBalance. Transport failures are folded
// into an unsuccessful result; the returned error is set for diagnostics and
// wraps ErrInsufficientBalance when the check fails.
func ExitWithBalanceCheck(ctx context.Context, api API, bicycleID string, minBalance float64) (ExitResult, error) {
	balance, err := api.GetBalance(ctx)
	if err != nil {
		return ExitResult{Success: false, Message: "Could not verify your balance. Please try again."},
			errors.Wrap(err, "[ExitWithBalanceCheck] balance check")
	}

	if balance == nil || *balance < minBalance {
		observed := "unknown"
		if balance != nil {
			observed = FormatAmount(*balance)
		}
		msg := fmt.Sprintf("Insufficient balance: %s. A minimum of %s is required to exit.", observed, FormatAmount(minBalance))
		return ExitResult{Success: false, Message: msg, Balance: balance},
			errors.Wrap(apperrors.ErrInsufficientBalance, msg)
	}

	result, err := api.Exit(ctx, bicycleID)
	if err != nil {
		return ExitResult{Success: false, Message: "Exit failed. Please try again.", Balance: balance},
			errors.Wrap(err, "[ExitWithBalanceCheck] exit")
	}
	result.Balance = balance
	return result, nil
}

// FormatAmount renders a currency amount with two fraction digits.
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
