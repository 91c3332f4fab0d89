package domain

import "time"

// SubscriptionPlan is the user's billing tier.
type SubscriptionPlan string

const (
	PlanBasic   SubscriptionPlan = "basic"
	PlanMedium  SubscriptionPlan = "medium"
	PlanPremium SubscriptionPlan = "premium"
)

// Valid reports whether p is a known plan.
func (p SubscriptionPlan) Valid() bool {
	switch p {
	case PlanBasic, PlanMedium, PlanPremium:
		return true
	}
	return false
}

// UserProfile models the logged-in user. ID never changes after creation.
type UserProfile struct {
	ID               string           `json:"id"`
	Email            string           `json:"email"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	Nickname         string           `json:"nickname,omitempty"`
	Phone            string           `json:"phone,omitempty"`
	Avatar           string           `json:"avatar,omitempty"`
	Gender           string           `json:"gender,omitempty"`
	BirthDate        *time.Time       `json:"birthDate,omitempty"`
	SubscriptionPlan SubscriptionPlan `json:"subscriptionPlan"`
	TokenBalance     int64            `json:"tokenBalance"`
	MainCardID       string           `json:"mainCardId,omitempty"`
	IsActive         bool             `json:"isActive"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// FullName joins first and last name.
func (u UserProfile) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Clone returns a deep copy.
func (u UserProfile) Clone() UserProfile {
	out := u
	if u.BirthDate != nil {
		bd := *u.BirthDate
		out.BirthDate = &bd
	}
	return out
}
