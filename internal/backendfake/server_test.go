package backendfake_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bikepark/parkclient/internal/backendfake"
	"github.com/bikepark/parkclient/remote"
)

func setupTestFixture(t *testing.T) *backendfake.Server {
	t.Helper()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := backendfake.New(
		backendfake.WithLogger(zerolog.Nop()),
		backendfake.WithNowTime(func() time.Time { return now }),
	)
	s.AddAccount(backendfake.Account{
		Phone:    "9999999999",
		Password: "secret",
		Name:     "Asha",
		Balance:  15,
		Cycles:   []backendfake.Cycle{{ID: "c1", Zone: "Z3"}, {ID: "c2", Zone: "N/A"}},
	})
	return s
}

func do(t *testing.T, s *backendfake.Server, method, route, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, backendfake.BasePath+route, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, s *backendfake.Server) *http.Cookie {
	t.Helper()
	rec := do(t, s, http.MethodPost, remote.RouteLogin, `{"userPhone":"9999999999","userPassword":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == backendfake.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestServer_RequiresSession(t *testing.T) {
	s := setupTestFixture(t)

	rec := do(t, s, http.MethodGet, remote.RouteProfile, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, remote.RouteProfile, "", &http.Cookie{Name: backendfake.SessionCookie, Value: "forged"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_LoginRejected(t *testing.T) {
	s := setupTestFixture(t)

	rec := do(t, s, http.MethodPost, remote.RouteLogin, `{"userPhone":"9999999999","userPassword":"nope"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Result().Cookies())
}

func TestServer_LogoutRevokesSession(t *testing.T) {
	s := setupTestFixture(t)
	cookie := login(t, s)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, remote.RouteLogout, "", cookie).Code)
	require.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, remote.RouteProfile, "", cookie).Code)
}

func TestServer_Exit(t *testing.T) {
	s := setupTestFixture(t)
	cookie := login(t, s)

	tests := []struct {
		name       string
		cycleID    string
		wantStatus int
	}{
		{"unknown cycle", "c9", http.StatusNotFound},
		{"not parked", "c2", http.StatusBadRequest},
		{"parked", "c1", http.StatusOK},
		{"already exited", "c1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodPut, remote.RouteExitAndPay, `{"cycleId":"`+tt.cycleID+`"}`, cookie)
		require.Equal(t, tt.wantStatus, rec.Code, tt.name)
	}

	acc, ok := s.Account("9999999999")
	require.True(t, ok)
	require.Equal(t, 5.0, acc.Balance)
	require.Equal(t, "N/A", acc.Cycles[0].Zone)

	rec := do(t, s, http.MethodGet, remote.RouteCardDetails, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var card struct {
		Data struct {
			CurrentBalance float64 `json:"currentBalance"`
			Debit          []struct {
				Amount    float64 `json:"amount"`
				CreatedAt string  `json:"createdAt"`
			} `json:"debit"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&card))
	require.Equal(t, 5.0, card.Data.CurrentBalance)
	require.Len(t, card.Data.Debit, 1)
	require.Equal(t, "2026-01-02T03:04:05Z", card.Data.Debit[0].CreatedAt)
}

func TestServer_ExitNeedsFee(t *testing.T) {
	s := setupTestFixture(t)
	cookie := login(t, s)
	s.AddAccount(backendfake.Account{Phone: "9999999999", Password: "secret", Balance: 5, Cycles: []backendfake.Cycle{{ID: "c1", Zone: "Z3"}}})

	rec := do(t, s, http.MethodPut, remote.RouteExitAndPay, `{"cycleId":"c1"}`, cookie)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestServer_ForcedFailure(t *testing.T) {
	s := setupTestFixture(t)
	cookie := login(t, s)

	s.Fail(remote.RouteCardDetails, http.StatusInternalServerError)
	require.Equal(t, http.StatusInternalServerError, do(t, s, http.MethodGet, remote.RouteCardDetails, "", cookie).Code)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, remote.RouteProfile, "", cookie).Code)

	s.Fail(remote.RouteCardDetails, 0)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, remote.RouteCardDetails, "", cookie).Code)
}
