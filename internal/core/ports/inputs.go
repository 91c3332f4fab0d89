package ports

import (
	"time"

	"github.com/pich-app/pich-core/internal/core/domain"
)

// Credentials carries the login form.
type Credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Email     string `json:"email"              validate:"required,email"`
	FirstName string `json:"firstName"          validate:"required,max=64"`
	LastName  string `json:"lastName"           validate:"required,max=64"`
	Nickname  string `json:"nickname,omitempty" validate:"omitempty,max=32"`
	Password  string `json:"password"           validate:"required,min=6"`
}

// CreateCardInput carries all data needed to create a new card.
type CreateCardInput struct {
	Type       domain.CardType     `json:"type"               validate:"required,oneof=BAC PAC VAC CAC"`
	Category   domain.CardCategory `json:"category,omitempty" validate:"omitempty,oneof=FAMILY FRIENDS WORK OTHER"`
	Name       string              `json:"name"               validate:"required,max=80"`
	Nickname   string              `json:"nickname"           validate:"required,max=32"`
	Phone      string              `json:"phone,omitempty"    validate:"omitempty,max=32"`
	Email      string              `json:"email,omitempty"    validate:"omitempty,email"`
	Bio        string              `json:"bio,omitempty"      validate:"omitempty,max=500"`
	Location   string              `json:"location,omitempty" validate:"omitempty,max=120"`
	Social     map[string]string   `json:"social,omitempty"   validate:"omitempty,dive,keys,oneof=instagram facebook twitter linkedin tiktok youtube telegram whatsapp website,endkeys,required,max=128"`
	IsPrime    bool                `json:"isPrime"`
	IsMainCard bool                `json:"isMainCard"`
	IsInWallet bool                `json:"isInWallet"`
}

// CardPatch is a partial card update. Nil fields are left untouched.
type CardPatch struct {
	Type       *domain.CardType     `json:"type,omitempty"       validate:"omitnil,oneof=BAC PAC VAC CAC"`
	Category   *domain.CardCategory `json:"category,omitempty"   validate:"omitnil,oneof=FAMILY FRIENDS WORK OTHER"`
	Name       *string              `json:"name,omitempty"       validate:"omitnil,min=1,max=80"`
	Nickname   *string              `json:"nickname,omitempty"   validate:"omitnil,min=1,max=32"`
	Phone      *string              `json:"phone,omitempty"      validate:"omitnil,max=32"`
	Email      *string              `json:"email,omitempty"      validate:"omitnil,omitempty,email"`
	Bio        *string              `json:"bio,omitempty"        validate:"omitnil,max=500"`
	Location   *string              `json:"location,omitempty"   validate:"omitnil,max=120"`
	Social     map[string]string    `json:"social,omitempty"     validate:"omitempty,dive,keys,oneof=instagram facebook twitter linkedin tiktok youtube telegram whatsapp website,endkeys,required,max=128"`
	IsPrime    *bool                `json:"isPrime,omitempty"`
	IsMainCard *bool                `json:"isMainCard,omitempty"`
	IsInWallet *bool                `json:"isInWallet,omitempty"`
}

// Apply copies the non-nil fields of p onto c. Social replaces the whole map.
func (p CardPatch) Apply(c *domain.Card) {
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Nickname != nil {
		c.Nickname = *p.Nickname
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Bio != nil {
		c.Bio = *p.Bio
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	if p.Social != nil {
		c.Social = make(map[string]string, len(p.Social))
		for k, v := range p.Social {
			c.Social[k] = v
		}
	}
	if p.IsPrime != nil {
		c.IsPrime = *p.IsPrime
	}
	if p.IsMainCard != nil {
		c.IsMainCard = *p.IsMainCard
	}
	if p.IsInWallet != nil {
		c.IsInWallet = *p.IsInWallet
	}
}

// ProfilePatch is a partial profile update. A non-nil pointer to "" clears a field.
type ProfilePatch struct {
	FirstName        *string                  `json:"firstName,omitempty"        validate:"omitnil,min=1,max=64"`
	LastName         *string                  `json:"lastName,omitempty"         validate:"omitnil,min=1,max=64"`
	Nickname         *string                  `json:"nickname,omitempty"         validate:"omitnil,max=32"`
	Phone            *string                  `json:"phone,omitempty"            validate:"omitnil,max=32"`
	Avatar           *string                  `json:"avatar,omitempty"`
	Gender           *string                  `json:"gender,omitempty"           validate:"omitnil,max=16"`
	BirthDate        *time.Time               `json:"birthDate,omitempty"`
	SubscriptionPlan *domain.SubscriptionPlan `json:"subscriptionPlan,omitempty" validate:"omitnil,oneof=basic medium premium"`
	MainCardID       *string                  `json:"mainCardId,omitempty"`
}

// Apply copies the non-nil fields of p onto u.
func (p ProfilePatch) Apply(u *domain.UserProfile) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Nickname != nil {
		u.Nickname = *p.Nickname
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.BirthDate != nil {
		bd := *p.BirthDate
		u.BirthDate = &bd
	}
	if p.SubscriptionPlan != nil {
		u.SubscriptionPlan = *p.SubscriptionPlan
	}
	if p.MainCardID != nil {
		u.MainCardID = *p.MainCardID
	}
}

// NotesInput carries a connection notes update.
type NotesInput struct {
	Notes string `json:"notes" validate:"max=500"`
}

// ScanInput carries the identifier read from another user's QR code.
type ScanInput struct {
	ScannedUserID string `json:"scannedUserId" validate:"required"`
}
