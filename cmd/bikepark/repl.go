package main

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bikepark/parkclient/internal/config"
	apperrors "github.com/bikepark/parkclient/internal/errors"
	"github.com/bikepark/parkclient/internal/validation"
	"github.com/bikepark/parkclient/parking"
	"github.com/bikepark/parkclient/remote"
	"github.com/bikepark/parkclient/session"
)

const helpText = `Commands:
  status                  show name, balance and bicycles
  refresh                 reload profile and balance
  history                 show credits and debits
  park <bicycle> <zone>   park a bicycle in the zone read from its code
  exit <bicycle>          end parking and pay
  logout                  sign out
  quit                    leave
`

type repl struct {
	console    *console
	store      *session.Store
	controller *parking.Controller
}

// newREPL wires the store and controller to a console.
func newREPL(c config.Config, api remote.API, cons *console) (*repl, error) {
	store, err := session.NewStore(api)
	if err != nil {
		return nil, err
	}
	policy, err := parking.ParseExitLockPolicy(c.GetExitLockPolicy())
	if err != nil {
		return nil, err
	}
	controller, err := parking.NewController(api, store, cons,
		parking.WithMinExitBalance(c.GetMinExitBalance()),
		parking.WithExitLock(policy),
	)
	if err != nil {
		return nil, err
	}
	return &repl{console: cons, store: store, controller: controller}, nil
}

// signIn prompts until the store is authenticated or input ends.
func (r *repl) signIn(ctx context.Context, phone, password string) bool {
	for {
		if phone == "" {
			var ok bool
			if phone, ok = r.console.readLine("Phone number: "); !ok {
				return false
			}
		}
		if password == "" {
			var ok bool
			if password, ok = r.console.readLine("Password: "); !ok {
				return false
			}
		}

		if err := validation.ValidateLogin(phone, password); err != nil {
			r.console.fail("%s", strings.TrimSuffix(err.Error(), ": "+apperrors.ErrInvalidInput.Error()))
			phone, password = "", ""
			continue
		}

		var statusErr *remote.StatusError
		err := r.store.Authenticate(ctx, phone, password)
		switch {
		case err == nil:
			r.console.ok("Welcome, %s.", r.store.Snapshot().Name)
			return true
		case apperrors.Is(err, apperrors.ErrInvalidCredentials):
			r.console.fail("Invalid phone number or password.")
		case apperrors.As(err, &statusErr):
			log.Err(err).Int("status", statusErr.StatusCode).Msg("Sign in failed")
			r.console.fail("The server could not sign you in (status %d). Please try again.", statusErr.StatusCode)
		default:
			log.Err(err).Msg("Sign in failed")
			r.console.fail("Could not sign in. Please try again.")
		}
		if ctx.Err() != nil {
			return false
		}
		phone, password = "", ""
	}
}

// loop runs commands until quit, logout or end of input.
func (r *repl) loop(ctx context.Context) {
	r.console.printf("%s", mutedStyle.Render(helpText))
	for ctx.Err() == nil {
		line, ok := r.console.readLine("> ")
		if !ok {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
		case "status":
			r.status()
		case "refresh":
			if err := r.store.RefreshUserData(ctx); err != nil {
				log.Err(err).Msg("Refresh failed")
				r.console.warn("Could not refresh your data.")
			}
			r.status()
		case "history":
			r.history(ctx)
		case "park":
			if len(args) != 2 {
				r.console.warn("usage: park <bicycle> <zone>")
				continue
			}
			r.park(ctx, args[0], args[1])
		case "exit":
			if len(args) != 1 {
				r.console.warn("usage: exit <bicycle>")
				continue
			}
			r.exit(ctx, args[0])
		case "logout":
			r.logout(ctx)
			return
		case "quit":
			return
		case "help":
			r.console.printf("%s", mutedStyle.Render(helpText))
		default:
			r.console.warn("unknown command %q, type help", cmd)
		}
	}
}

func (r *repl) status() {
	snap := r.store.Snapshot()
	if snap == nil {
		r.console.warn("Not signed in.")
		return
	}
	r.console.println(titleStyle, "%s (%s)", snap.Name, snap.PhoneNumber)
	r.console.printf("Balance: %s\n", balanceStyle.Render(snap.Balance()))
	if len(snap.Bicycles) == 0 {
		r.console.println(mutedStyle, "No bicycles registered.")
	}
	for _, b := range snap.Bicycles {
		style := mutedStyle
		if b.Parked() {
			style = parkedStyle
		}
		r.console.printf("  %-12s %s\n", b.ID, style.Render(b.ZoneLabel()))
	}
}

func (r *repl) history(ctx context.Context) {
	h, err := r.store.PaymentHistory(ctx)
	if err != nil {
		log.Err(err).Msg("Payment history failed")
		r.console.fail("Could not load your payment history.")
		return
	}
	printTransactions := func(title string, txs []remote.Transaction) {
		r.console.println(titleStyle, "%s:", title)
		if len(txs) == 0 {
			r.console.println(mutedStyle, "  none")
		}
		for _, tx := range txs {
			r.console.printf("  %10s  %-24s %s\n", remote.FormatAmount(tx.Amount), tx.Description, mutedStyle.Render(tx.Date))
		}
	}
	printTransactions("Credits", h.Credit)
	printTransactions("Debits", h.Debit)
}

// park runs one scan attempt, feeding the typed zone as the decoded code.
func (r *repl) park(ctx context.Context, bicycleID, zone string) {
	c := r.controller
	defer func() {
		if c.Attempt().State != parking.StateIdle {
			c.Cancel()
		}
	}()

	if err := c.BeginScan(); err != nil {
		r.console.warn("%s", c.Attempt().Message)
		return
	}
	if err := c.SelectBicycle(ctx, bicycleID); err != nil {
		if apperrors.Is(err, apperrors.ErrUnknownBicycle) {
			r.console.warn("You do not own bicycle %s.", bicycleID)
		} else {
			r.console.warn("%s", c.Attempt().Message)
		}
		return
	}

	for {
		if !c.OnDecoded(zone) {
			return
		}
		if !r.console.confirm(c.Attempt().Message) {
			if err := c.CancelZoneUpdate(); err == nil {
				r.console.println(mutedStyle, "Cancelled.")
			}
			return
		}
		if err := c.ConfirmZoneUpdate(ctx); err != nil {
			log.Err(err).Msg("Zone update failed")
			r.console.fail("%s", c.Attempt().Message)
			if !r.console.confirm("Retry?") {
				return
			}
			continue
		}
		r.console.ok("%s", c.Attempt().Message)
		return
	}
}

func (r *repl) exit(ctx context.Context, bicycleID string) {
	c := r.controller
	if err := c.RequestExit(bicycleID); err != nil {
		switch {
		case apperrors.Is(err, apperrors.ErrUnknownBicycle):
			r.console.warn("You do not own bicycle %s.", bicycleID)
		case apperrors.Is(err, apperrors.ErrZoneNotExitable):
			r.console.warn("Bicycle %s is not parked in a zone you can exit from.", bicycleID)
		case apperrors.Is(err, apperrors.ErrExitInProgress):
			r.console.warn("An exit is already in progress.")
		}
		return
	}

	if !r.console.confirm("Exit and pay for bicycle " + bicycleID + "?") {
		c.CancelExit(bicycleID)
		return
	}
	result, err := c.ConfirmExit(ctx, bicycleID)
	if err != nil {
		log.Debug().Err(err).Msg("Exit not completed")
	}
	if result.Success {
		r.console.ok("%s", result.Message)
	} else {
		r.console.fail("%s", result.Message)
	}
	if result.Balance != nil {
		r.console.println(mutedStyle, "Balance before exit: %s", remote.FormatAmount(*result.Balance))
	}
}

func (r *repl) logout(ctx context.Context) {
	res := r.store.SignOut(ctx)
	if res.RemoteErr != nil {
		log.Warn().Err(res.RemoteErr).Msg("Remote sign out failed")
	}
	r.console.ok("Signed out.")
}
