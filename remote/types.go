package remote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Zone sentinels reported by the backend
const (
	ZoneNone    = "N/A"
	ZoneOffline = "offline"
)

// Bicycle is one owned unit as reported by the profile endpoint.
type Bicycle struct {
	ID   string
	Zone string // ZoneNone when not parked
}

// Profile is the shaped result of the profile endpoint. Name is empty when
// the backend omitted it; callers choose the fallback.
type Profile struct {
	Name     string
	Bicycles []Bicycle
}

// Transaction is a single credit or debit entry on the wallet card.
type Transaction struct {
	Amount      float64
	Description string
	Date        string
}

// PaymentHistory holds the card's credit and debit entries. Both slices are
// non-nil.
type PaymentHistory struct {
	Credit []Transaction
	Debit  []Transaction
}

// ExitResult is the outcome of an exit-and-pay request.
type ExitResult struct {
	Success bool
	Message string
	Balance *float64 // balance observed by the pre-exit check, if any
}

// Wire envelopes. Everything below is private to the package so callers
// never see raw backend shapes.

type loginRequest struct {
	UserPhone    string `json:"userPhone"`
	UserPassword string `json:"userPassword"`
}

type updateEntryRequest struct {
	CycleID string `json:"cycleId"`
	ZoneID  string `json:"zoneId"`
}

type exitRequest struct {
	CycleID string `json:"cycleId"`
}

type profileEnvelope struct {
	Data struct {
		User struct {
			UserName string `json:"userName"`
		} `json:"user"`
		UserCycles []struct {
			CycleID flexString `json:"cycleId"`
			ZoneID  flexString `json:"zoneId"`
		} `json:"userCycles"`
	} `json:"data"`
}

type cardEnvelope struct {
	Data struct {
		CurrentBalance *amount            `json:"currentBalance"`
		Credit         []transactionEntry `json:"credit"`
		Debit          []transactionEntry `json:"debit"`
	} `json:"data"`
}

type transactionEntry struct {
	Amount      *amount `json:"amount"`
	Description string  `json:"description"`
	Remark      string  `json:"remark"`
	CreatedAt   string  `json:"createdAt"`
	Date        string  `json:"date"`
}

type messageEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (p profileEnvelope) shape() *Profile {
	profile := &Profile{
		Name:     strings.TrimSpace(p.Data.User.UserName),
		Bicycles: make([]Bicycle, 0, len(p.Data.UserCycles)),
	}
	for _, c := range p.Data.UserCycles {
		zone := strings.TrimSpace(string(c.ZoneID))
		if zone == "" {
			zone = ZoneNone
		}
		profile.Bicycles = append(profile.Bicycles, Bicycle{ID: string(c.CycleID), Zone: zone})
	}
	return profile
}

func (c cardEnvelope) balance() *float64 {
	if c.Data.CurrentBalance == nil {
		return nil
	}
	v := float64(*c.Data.CurrentBalance)
	return &v
}

func (c cardEnvelope) history() *PaymentHistory {
	return &PaymentHistory{
		Credit: shapeTransactions(c.Data.Credit),
		Debit:  shapeTransactions(c.Data.Debit),
	}
}

func shapeTransactions(entries []transactionEntry) []Transaction {
	out := make([]Transaction, 0, len(entries))
	for _, e := range entries {
		t := Transaction{Description: e.Description, Date: e.CreatedAt}
		if e.Amount != nil {
			t.Amount = float64(*e.Amount)
		}
		if t.Description == "" {
			t.Description = e.Remark
		}
		if t.Date == "" {
			t.Date = e.Date
		}
		out = append(out, t)
	}
	return out
}

// amount accepts a JSON number, a numeric string, or a Mongo
// {"$numberDecimal": "..."} wrapper.
type amount float64

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return errors.Wrapf(err, "amount %q", s)
		}
		*a = amount(f)
	case '{':
		var dec struct {
			NumberDecimal string `json:"$numberDecimal"`
		}
		if err := json.Unmarshal(b, &dec); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(dec.NumberDecimal, 64)
		if err != nil {
			return errors.Wrapf(err, "amount %q", dec.NumberDecimal)
		}
		*a = amount(f)
	default:
		var f float64
		if err := json.Unmarshal(b, &f); err != nil {
			return err
		}
		*a = amount(f)
	}
	return nil
}

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}
