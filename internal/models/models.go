package models

import "time"

// Tier is the privilege level a user holds at the moment of a request.
type Tier string

const (
	TierFree        Tier = "free"
	TierTrial       Tier = "trial"
	TierTempSession Tier = "session"
	TierPremium     Tier = "premium"
)

// Full reports whether the tier bypasses all free-tier quotas.
func (t Tier) Full() bool {
	return t != TierFree
}

// SessionKind distinguishes the chat modes a user can be in.
type SessionKind string

const (
	KindChat         SessionKind = "chat"
	KindConfessional SessionKind = "confessional"
	KindTempPremium  SessionKind = "temp_premium"
)

// SKU identifiers carried in invoice payloads. Exactly two products exist.
const (
	PayloadPremiumMonth = "premium_1month"
	PayloadDeepSession  = "deep_session"
)

type User struct {
	ID            int64
	Username      string
	Language      string
	PremiumUntil  *time.Time
	IsPremium     bool
	TrialUntil    *time.Time
	TrialUsed     bool
	NightMessages int
	LastNightDate string
	LastActive    time.Time
	TotalMessages int
	ReferrerID    *int64
	ReferralCount int
	BonusMessages int
	IsBlocked     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type SessionRecord struct {
	ID             int64
	UserID         int64
	StartTime      time.Time
	EndTime        *time.Time
	IsActive       bool
	IsConfessional bool
}

type Conversation struct {
	ID        int64
	UserID    int64
	SessionID int64
	Content   string
	IsUser    bool
	Timestamp time.Time
}

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralConverted ReferralStatus = "converted"
)

type Referral struct {
	ID          int64
	ReferrerID  int64
	ReferredID  int64
	Status      ReferralStatus
	CreatedAt   time.Time
	ConvertedAt *time.Time
	BonusGiven  bool
}

type ReferralStats struct {
	Total     int
	Converted int
}

type Payment struct {
	ID             int64
	UserID         int64
	Provider       string
	ProviderCharge string
	Currency       string
	Amount         int
	Payload        string
	Status         string
	RawPayload     string
	CreatedAt      time.Time
}

type AnalyticsEvent struct {
	ID        int64
	UserID    int64
	EventType string
	EventData string
	Timestamp time.Time
}

// Stats is the aggregate reporting view served by the admin API.
type Stats struct {
	PeriodDays         int            `json:"period_days"`
	NewUsers           int            `json:"new_users"`
	TotalMessages      int            `json:"total_messages"`
	TotalUsers         int            `json:"total_users"`
	PremiumUsers       int            `json:"premium_users"`
	Languages          map[string]int `json:"languages"`
	ReferralsTotal     int            `json:"referrals_total"`
	ReferralsConverted int            `json:"referrals_converted"`
}
