package models

import "time"

// SubscriptionStatus статус абонемента.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPending   SubscriptionStatus = "pending"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription предоплаченный абонемент участника.
// SessionsRemaining меняется только через ledger.
type Subscription struct {
	ID                int64              `json:"id"`
	MemberID          int64              `json:"member_id"`
	PlanID            int64              `json:"plan_id"`
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
	SessionsTotal     int                `json:"sessions_total"`
	SessionsRemaining int                `json:"sessions_remaining"`
	Status            SubscriptionStatus `json:"status"`
}
