package dto

import "time"

type CheckoutResponse struct {
	OrderId     string `json:"orderId"`
	SnapToken   string `json:"snapToken"`
	CheckoutURL string `json:"checkoutUrl"`
}

// SubscriptionStatusResponse has the PRO fields or the BASIC usage fields, never both.
type SubscriptionStatusResponse struct {
	Tier              string     `json:"tier"`
	Status            string     `json:"status,omitempty"`
	CurrentPeriodEnd  *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd *bool      `json:"cancelAtPeriodEnd,omitempty"`
	DailyLimit        *int       `json:"dailyLimit,omitempty"`
	UsedToday         *int       `json:"usedToday,omitempty"`
	RemainingToday    *int       `json:"remainingToday,omitempty"`
}

// MidtransNotification is the body Midtrans posts to the payment webhook.
type MidtransNotification struct {
	TransactionId     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	OrderId           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	PaymentType       string `json:"payment_type"`
	CustomField1      string `json:"custom_field1"`
}
