package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bikepark/parkclient/internal/config"
	"github.com/bikepark/parkclient/remote"
	"github.com/bikepark/parkclient/remote/remotefake"
)

func setupTestFixture(t *testing.T) *remotefake.FakeAPI {
	t.Helper()
	api := remotefake.NewFakeAPI("9999999999", "secret")
	api.Name = "Asha"
	api.ExitFee = 10
	api.SetBalance(45.5)
	api.SetBicycles(
		remote.Bicycle{ID: "c1", Zone: "Z3"},
		remote.Bicycle{ID: "c2", Zone: remote.ZoneNone},
	)
	return api
}

func interactive(ctx context.Context, r *repl) {
	r.loop(ctx)
}

func runScript(t *testing.T, api remote.API, flagPhone, flagPassword string, lines ...string) string {
	t.Helper()
	phone, password = flagPhone, flagPassword
	t.Cleanup(func() { phone, password = "", "" })

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, start(context.Background(), config.New(), api, in, &out, interactive))
	return out.String()
}

func TestREPL_ParkAndExit(t *testing.T) {
	api := setupTestFixture(t)

	out := runScript(t, api, "9999999999", "secret",
		"status",
		"park c2 Z1",
		"y", // camera permission
		"y", // confirm zone
		"exit c1",
		"y",
		"status",
		"quit",
	)

	require.Contains(t, out, "Welcome, Asha.")
	require.Contains(t, out, "45.50")
	require.Contains(t, out, "Not Parked")
	require.Contains(t, out, "Bicycle c2 parked in zone Z1.")
	require.Contains(t, out, "Exit successful")
	require.Contains(t, out, "35.50")
	require.Equal(t, []remotefake.ZoneUpdate{{BicycleID: "c2", ZoneID: "Z1"}}, api.ZoneUpdates())
	require.Equal(t, 1, api.Calls("Exit"))
}

func TestREPL_SignInPrompts(t *testing.T) {
	api := setupTestFixture(t)

	out := runScript(t, api, "", "",
		"12", "secret",
		"9999999999", "wrong",
		"9999999999", "secret",
		"logout",
	)

	require.Contains(t, out, "phone number must contain 6 to 15 digits")
	require.Contains(t, out, "Invalid phone number or password.")
	require.Contains(t, out, "Welcome, Asha.")
	require.Contains(t, out, "Signed out.")
	require.False(t, api.LoggedIn())
}

func TestREPL_PermissionDeniedAndRejections(t *testing.T) {
	api := setupTestFixture(t)
	api.SetBalance(19.99)

	out := runScript(t, api, "9999999999", "secret",
		"park c2 Z1",
		"n",
		"exit c2",
		"exit c1",
		"y",
		"bogus",
		"quit",
	)

	require.Contains(t, out, "Camera permission is required")
	require.Contains(t, out, "not parked in a zone you can exit from")
	require.Contains(t, out, "Insufficient balance: 19.99. A minimum of 20.00 is required to exit.")
	require.Contains(t, out, `unknown command "bogus"`)
	require.Empty(t, api.ZoneUpdates())
	require.Equal(t, 0, api.Calls("Exit"))
}

func TestREPL_EndOfInputDuringSignIn(t *testing.T) {
	api := setupTestFixture(t)
	var out bytes.Buffer
	require.NoError(t, start(context.Background(), config.New(), api, strings.NewReader(""), &out, interactive))
	require.Equal(t, 0, api.Calls("Login"))
}

func TestStatusCommand_SignsOutAfterPrinting(t *testing.T) {
	api := setupTestFixture(t)
	phone, password = "9999999999", "secret"
	t.Cleanup(func() { phone, password = "", "" })

	var out bytes.Buffer
	err := start(context.Background(), config.New(), api, strings.NewReader(""), &out, func(ctx context.Context, r *repl) {
		r.status()
		r.store.SignOut(ctx)
	})
	require.NoError(t, err)
	require.Contains(t, out.String(), "Asha (9999999999)")
	require.Contains(t, out.String(), "c1")
	require.False(t, api.LoggedIn())
}
