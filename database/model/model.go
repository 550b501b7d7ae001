// Package model defines the portal's domain types: the session principal
// with its closed role and tier enums, and the locally persisted records.
package model

import "time"

// Role is the closed set of principal roles recognized by the portal.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a backend role string onto the closed enum. Unknown
// values collapse to RoleUser so an unexpected claim never grants admin.
func ParseRole(s string) Role {
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// Tier is the closed, ordered set of membership tiers.
type Tier string

const (
	TierFree         Tier = "FREE"
	TierGyani        Tier = "GYANI"
	TierPragyani     Tier = "PRAGYANI"
	TierPragyaniPlus Tier = "PRAGYANI_PLUS"
)

var tierRank = map[Tier]int{
	TierFree:         0,
	TierGyani:        1,
	TierPragyani:     2,
	TierPragyaniPlus: 3,
}

// ParseTier maps a backend tier string onto the closed enum. Unknown
// tiers collapse to FREE.
func ParseTier(s string) Tier {
	if _, ok := tierRank[Tier(s)]; ok {
		return Tier(s)
	}
	return TierFree
}

// AtLeast reports whether t grants everything required grants.
func (t Tier) AtLeast(required Tier) bool {
	return tierRank[t] >= tierRank[required]
}

// Principal is the authenticated identity derived from the session
// cookie for the current request. It is issued at login, read-only
// afterwards, and destroyed at logout or expiry.
type Principal struct {
	Id           int    `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	Tier         Tier   `json:"tier"`
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}

// Setting is a persisted key/value tunable.
type Setting struct {
	Id    int    `json:"id" gorm:"primaryKey;autoIncrement"`
	Key   string `json:"key" gorm:"uniqueIndex"`
	Value string `json:"value"`
}

// PaymentStatus is the lifecycle state of a local payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// PaymentRecord mirrors one Tilopay transaction initiated from this portal.
type PaymentRecord struct {
	Id          int           `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderId     string        `json:"orderId" gorm:"uniqueIndex"`
	UserId      int           `json:"userId" gorm:"index"`
	AmountCents int64         `json:"amountCents"`
	Currency    string        `json:"currency"`
	Purpose     string        `json:"purpose"` // donation | course | membership
	Status      PaymentStatus `json:"status" gorm:"index"`
	ProviderRef string        `json:"providerRef"`
	PayerEmail  string        `json:"payerEmail"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// AuditEntry records one admin action taken through this portal.
type AuditEntry struct {
	Id         int       `json:"id" gorm:"primaryKey;autoIncrement"`
	UserId     int       `json:"userId" gorm:"index"`
	Email      string    `json:"email"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource" gorm:"index"`
	ResourceId string    `json:"resourceId"`
	Ip         string    `json:"ip"`
	UserAgent  string    `json:"userAgent"`
	Details    string    `json:"details"` // JSON blob
	CreatedAt  time.Time `json:"createdAt" gorm:"index"`
}

// FormSubmission journals a form post locally before it is relayed to
// the application backend, so a backend outage loses nothing.
type FormSubmission struct {
	Id           int       `json:"id" gorm:"primaryKey;autoIncrement"`
	SubmissionId string    `json:"submissionId" gorm:"uniqueIndex"`
	FormSlug     string    `json:"formSlug" gorm:"index"`
	Payload      string    `json:"payload"` // JSON blob
	Relayed      bool      `json:"relayed" gorm:"index"`
	CreatedAt    time.Time `json:"createdAt"`
}
