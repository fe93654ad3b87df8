package model

import "time"

// DefaultMonthlyFee is charged when registration does not name a fee.
const DefaultMonthlyFee = 14.99

// Viewer mirrors the `viewers` table. PasswordHash never leaves the
// service layer; the json tag keeps it out of every response.
type Viewer struct {
	ID             uint64    `json:"viewerId"`                 // viewers.id
	Email          string    `json:"email"`                    // viewers.email (unique, lower-cased)
	FirstName      string    `json:"firstName"`                // viewers.first_name
	LastName       string    `json:"lastName,omitempty"`       // viewers.last_name
	PasswordHash   string    `json:"-"`                        // viewers.password_hash
	Role           Role      `json:"role"`                     // viewers.role
	BillingStreet  string    `json:"billingStreet,omitempty"`  // viewers.billing_street
	BillingCity    string    `json:"billingCity,omitempty"`    // viewers.billing_city
	BillingZipcode *uint32   `json:"billingZipcode,omitempty"` // viewers.billing_zipcode
	MonthlyFee     float64   `json:"monthlyFee"`               // viewers.monthly_fee
	SeriesID       *uint64   `json:"seriesId,omitempty"`       // viewers.series_id (set null when the series goes)
	CountryID      uint64    `json:"countryId"`                // viewers.country_id
	CreatedAt      time.Time `json:"createdAt"`                // viewers.created_at
}

// Registration carries the validated input of a sign-up.
type Registration struct {
	FirstName  string
	LastName   string
	Email      string
	Password   string
	SeriesID   uint64
	CountryID  uint64
	MonthlyFee *float64
}

// ViewerPatch is a partial profile update; nil fields are left untouched.
type ViewerPatch struct {
	FirstName      *string
	LastName       *string
	BillingStreet  *string
	BillingCity    *string
	BillingZipcode *uint32
}

// Empty reports whether the patch changes nothing.
func (p ViewerPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.BillingStreet == nil &&
		p.BillingCity == nil && p.BillingZipcode == nil
}

// Country is catalog reference data for registration and release country.
type Country struct {
	ID   uint64 `json:"countryId"`
	Name string `json:"countryName"`
}
