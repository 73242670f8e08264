package models

import (
	"time"

	id "trustbank/pkg/domain"
)

// Category names one of the data categories a user can withhold.
type Category string

const (
	CategoryIncome             Category = "income"
	CategoryLocation           Category = "location"
	CategoryTransactionHistory Category = "transactionHistory"
	CategoryDeviceInfo         Category = "deviceInfo"
	CategoryBehavioralData     Category = "behavioralData"
)

// Settings are a user's live consent flags. A flag left at its zero value is
// withheld.
type Settings struct {
	UserID             id.UserID
	Income             bool
	Location           bool
	TransactionHistory bool
	DeviceInfo         bool
	BehavioralData     bool
	UpdatedAt          time.Time
}

// DefaultSettings grants every category. Applied once, on first access.
func DefaultSettings(userID id.UserID, now time.Time) *Settings {
	return &Settings{
		UserID:             userID,
		Income:             true,
		Location:           true,
		TransactionHistory: true,
		DeviceInfo:         true,
		BehavioralData:     true,
		UpdatedAt:          now,
	}
}

// Snapshot copies the five flags into a value owned by the caller.
func (s *Settings) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		Income:             s.Income,
		Location:           s.Location,
		TransactionHistory: s.TransactionHistory,
		DeviceInfo:         s.DeviceInfo,
		BehavioralData:     s.BehavioralData,
	}
}

// Apply sets every flag present in u and reports the categories that changed.
func (s *Settings) Apply(u Update, now time.Time) []Category {
	var changed []Category
	set := func(dst *bool, v *bool, c Category) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = append(changed, c)
		}
	}
	set(&s.Income, u.Income, CategoryIncome)
	set(&s.Location, u.Location, CategoryLocation)
	set(&s.TransactionHistory, u.TransactionHistory, CategoryTransactionHistory)
	set(&s.DeviceInfo, u.DeviceInfo, CategoryDeviceInfo)
	set(&s.BehavioralData, u.BehavioralData, CategoryBehavioralData)
	if len(changed) > 0 {
		s.UpdatedAt = now
	}
	return changed
}

// Update is a partial toggle; nil fields are left unchanged.
type Update struct {
	Income             *bool
	Location           *bool
	TransactionHistory *bool
	DeviceInfo         *bool
	BehavioralData     *bool
}

// Snapshot is the consent state frozen into a decision. It is a plain value:
// copying a Decision copies it, and nothing else points at it. JSON decoding
// leaves absent flags false.
type Snapshot struct {
	Income             bool `json:"income"`
	Location           bool `json:"location"`
	TransactionHistory bool `json:"transaction_history"`
	DeviceInfo         bool `json:"device_info"`
	BehavioralData     bool `json:"behavioral_data"`
}

// Withheld lists the withheld categories in fixed order.
func (s Snapshot) Withheld() []Category {
	var out []Category
	if !s.Income {
		out = append(out, CategoryIncome)
	}
	if !s.Location {
		out = append(out, CategoryLocation)
	}
	if !s.TransactionHistory {
		out = append(out, CategoryTransactionHistory)
	}
	if !s.DeviceInfo {
		out = append(out, CategoryDeviceInfo)
	}
	if !s.BehavioralData {
		out = append(out, CategoryBehavioralData)
	}
	return out
}
