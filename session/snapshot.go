package session

import (
	"github.com/bikepark/parkclient/internal/utils"
	"github.com/bikepark/parkclient/remote"
)

// DefaultName is shown when the backend does not report a user name.
const DefaultName = "User"

// Bicycle is one owned unit and the zone it is parked in.
type Bicycle struct {
	ID   string
	Zone string
}

// Parked reports whether the bicycle is in a known zone.
func (b Bicycle) Parked() bool {
	return b.Zone != "" && b.Zone != remote.ZoneNone
}

// Exitable reports whether an exit can be requested for the bicycle. Zones
// that are offline cannot accept exits.
func (b Bicycle) Exitable() bool {
	return b.Parked() && b.Zone != remote.ZoneOffline
}

func (b Bicycle) ZoneLabel() string {
	if !b.Parked() {
		return "Not Parked"
	}
	return b.Zone
}

// Snapshot is the merged view of the signed-in user. It is rebuilt wholesale
// on every refresh and handed out as a copy.
type Snapshot struct {
	Name          string
	PhoneNumber   string
	WalletBalance *float64 // nil until the backend reports a balance
	Bicycles      []Bicycle
}

// Bicycle looks up an owned bicycle by id.
func (s *Snapshot) Bicycle(id string) (Bicycle, bool) {
	if s == nil {
		return Bicycle{}, false
	}
	for _, b := range s.Bicycles {
		if b.ID == id {
			return b, true
		}
	}
	return Bicycle{}, false
}

// Balance renders the wallet balance with two fraction digits.
func (s *Snapshot) Balance() string {
	if s == nil {
		return FormatAmount(nil)
	}
	return FormatAmount(s.WalletBalance)
}

func (s *Snapshot) clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		Name:          s.Name,
		PhoneNumber:   s.PhoneNumber,
		WalletBalance: utils.Clone(s.WalletBalance),
		Bicycles:      append(make([]Bicycle, 0, len(s.Bicycles)), s.Bicycles...),
	}
}

// fold merges a profile and a balance into a new snapshot. previousName is
// used when the profile carries no name.
func fold(profile *remote.Profile, balance *float64, phoneNumber, previousName string) *Snapshot {
	snap := &Snapshot{
		Name:          previousName,
		PhoneNumber:   phoneNumber,
		WalletBalance: utils.Clone(balance),
		Bicycles:      []Bicycle{},
	}
	if profile != nil {
		if profile.Name != "" {
			snap.Name = profile.Name
		}
		snap.Bicycles = make([]Bicycle, 0, len(profile.Bicycles))
		for _, b := range profile.Bicycles {
			zone := b.Zone
			if zone == "" {
				zone = remote.ZoneNone
			}
			snap.Bicycles = append(snap.Bicycles, Bicycle{ID: b.ID, Zone: zone})
		}
	}
	if snap.Name == "" {
		snap.Name = DefaultName
	}
	return snap
}

// FormatAmount renders an optional amount with two fraction digits, "0.00"
// when unknown.
func FormatAmount(v *float64) string {
	return remote.FormatAmount(utils.Value(v))
}
