package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bikepark/parkclient/internal/backendfake"
	apperrors "github.com/bikepark/parkclient/internal/errors"
	"github.com/bikepark/parkclient/remote"
)

const (
	testPhone    = "9999999999"
	testPassword = "secret"
)

type testFixture struct {
	backend *backendfake.Server
	server  *httptest.Server
	client  *remote.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := backendfake.New(backendfake.WithLogger(zerolog.Nop()))
	backend.AddAccount(backendfake.Account{
		Phone:    testPhone,
		Password: testPassword,
		Name:     "Asha",
		Balance:  45.5,
		Cycles: []backendfake.Cycle{
			{ID: "c1", Zone: "Z3"},
			{ID: "c2", Zone: ""},
		},
	})

	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	client, err := remote.NewClient(server.URL+backendfake.BasePath, remote.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	return &testFixture{backend: backend, server: server, client: client}
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	ok, err := f.client.Login(context.Background(), testPhone, testPassword)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := remote.NewClient("")
	require.Error(t, err)
}

func TestNewClient_TimeoutAppliesInAnyOptionOrder(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	tests := []struct {
		name    string
		options func(hc *http.Client) []remote.ClientOption
	}{
		{"timeout first", func(hc *http.Client) []remote.ClientOption {
			return []remote.ClientOption{remote.WithTimeout(20 * time.Millisecond), remote.WithHTTPClient(hc)}
		}},
		{"timeout last", func(hc *http.Client) []remote.ClientOption {
			return []remote.ClientOption{remote.WithHTTPClient(hc), remote.WithTimeout(20 * time.Millisecond)}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared := &http.Client{}
			options := append(tt.options(shared), remote.WithLogger(zerolog.Nop()))
			client, err := remote.NewClient(slow.URL, options...)
			require.NoError(t, err)

			start := time.Now()
			ok, err := client.Login(context.Background(), testPhone, testPassword)
			require.Error(t, err)
			require.False(t, ok)
			require.Less(t, time.Since(start), time.Second)

			// the caller's client is left alone
			require.Zero(t, shared.Timeout)
			require.Nil(t, shared.Jar)
		})
	}
}

func TestLogin_BadCredentialsReturnsFalse(t *testing.T) {
	f := setupTestFixture(t)

	ok, err := f.client.Login(context.Background(), testPhone, "wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLogin_TransportFailureReturnsError(t *testing.T) {
	f := setupTestFixture(t)
	f.server.Close()

	ok, err := f.client.Login(context.Background(), testPhone, testPassword)
	require.Error(t, err)
	require.False(t, ok)
}

func TestGetProfile_UsesSessionCookie(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.client.GetProfile(context.Background())
	var statusErr *remote.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.ErrorIs(t, err, apperrors.ErrUnexpectedStatus)

	f.login(t)

	profile, err := f.client.GetProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Asha", profile.Name)
	require.Equal(t, []remote.Bicycle{
		{ID: "c1", Zone: "Z3"},
		{ID: "c2", Zone: remote.ZoneNone},
	}, profile.Bicycles)
}

func TestGetBalanceAndHistory(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	balance, err := f.client.GetBalance(context.Background())
	require.NoError(t, err)
	require.NotNil(t, balance)
	require.Equal(t, 45.5, *balance)

	history, err := f.client.GetPaymentHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, history.Credit, 1)
	require.Equal(t, 45.5, history.Credit[0].Amount)
	require.NotNil(t, history.Debit)
	require.Empty(t, history.Debit)
}

func TestGetBalance_ForcedFailureIsStatusError(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.Fail(remote.RouteCardDetails, http.StatusInternalServerError)

	_, err := f.client.GetBalance(context.Background())
	require.ErrorIs(t, err, apperrors.ErrUnexpectedStatus)
}

func TestUpdateZoneThenProfile(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	ok, err := f.client.UpdateZone(context.Background(), "c2", "Z1")
	require.NoError(t, err)
	require.True(t, ok)

	profile, err := f.client.GetProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Z1", profile.Bicycles[1].Zone)

	ok, err = f.client.UpdateZone(context.Background(), "missing", "Z1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExit(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	result, err := f.client.Exit(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, result.Success)

	acc, ok := f.backend.Account(testPhone)
	require.True(t, ok)
	require.Equal(t, 35.5, acc.Balance)
	require.Equal(t, remote.ZoneNone, acc.Cycles[0].Zone)

	result, err = f.client.Exit(context.Background(), "c1")
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Equal(t, "Cycle is not parked", result.Message)
}

func TestLogout_DropsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	require.NoError(t, f.client.Logout(context.Background()))

	_, err := f.client.GetProfile(context.Background())
	require.ErrorIs(t, err, apperrors.ErrUnexpectedStatus)
}

func TestLogout_FailureStillDropsCookies(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.backend.Fail(remote.RouteLogout, http.StatusBadGateway)

	require.Error(t, f.client.Logout(context.Background()))

	f.backend.Fail(remote.RouteLogout, 0)
	_, err := f.client.GetProfile(context.Background())
	require.ErrorIs(t, err, apperrors.ErrUnexpectedStatus)
}

func TestResponseShaping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(remote.RouteProfile, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"user":{},"userCycles":[{"cycleId":17,"zoneId":null},{"cycleId":"c9","zoneId":"offline"}]}}`))
	})
	mux.HandleFunc(remote.RouteCardDetails, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"currentBalance":{"$numberDecimal":"12.75"},"credit":[{"amount":"5","remark":"top up","date":"2024-01-02"}]}}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := remote.NewClient(server.URL, remote.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	profile, err := client.GetProfile(context.Background())
	require.NoError(t, err)
	require.Empty(t, profile.Name)
	require.Equal(t, []remote.Bicycle{{ID: "17", Zone: remote.ZoneNone}, {ID: "c9", Zone: remote.ZoneOffline}}, profile.Bicycles)

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12.75, *balance)

	history, err := client.GetPaymentHistory(context.Background())
	require.NoError(t, err)
	require.Equal(t, []remote.Transaction{{Amount: 5, Description: "top up", Date: "2024-01-02"}}, history.Credit)
	require.Empty(t, history.Debit)
}

func TestGetBalance_MissingAndMalformed(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "missing balance", body: `{"data":{}}`},
		{name: "truncated json", body: `{"data":`, wantErr: apperrors.ErrMalformedResponse},
		{name: "non numeric balance", body: `{"data":{"currentBalance":"abc"}}`, wantErr: apperrors.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			client, err := remote.NewClient(server.URL, remote.WithLogger(zerolog.Nop()))
			require.NoError(t, err)

			balance, err := client.GetBalance(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Nil(t, balance)
		})
	}
}
