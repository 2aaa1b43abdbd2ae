package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// ErrTransactionNotFound means the provider has no record of the order.
var ErrTransactionNotFound = errors.New("transaction not found")

type CheckoutRequest struct {
	OrderID   string
	Amount    int64
	ItemName  string
	UserID    string
	Name      string
	Email     string
	Phone     string
	FinishURL string
}

type Checkout struct {
	Token       string
	RedirectURL string
}

type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	// TransactionStatus returns the provider's transaction_status for orderID.
	TransactionStatus(ctx context.Context, orderID string) (string, error)
	VerifySignature(orderID, statusCode, grossAmount, signature string) bool
}

type MidtransGateway struct {
	serverKey string
	snap      snap.Client
	core      coreapi.Client
}

func NewMidtransGateway(serverKey string, isProduction bool) *MidtransGateway {
	env := midtrans.Sandbox
	if isProduction {
		env = midtrans.Production
	}

	g := &MidtransGateway{serverKey: serverKey}
	g.snap.New(serverKey, env)
	g.core.New(serverKey, env)
	return g
}

func (g *MidtransGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount,
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Callbacks: &snap.Callbacks{
			Finish: req.FinishURL,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Name,
			Email: req.Email,
			Phone: req.Phone,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    "pro-monthly",
				Price: req.Amount,
				Qty:   1,
				Name:  req.ItemName,
			},
		},
		// Echoed back on notifications so the webhook can resolve the user.
		CustomField1:    req.UserID,
		EnabledPayments: snap.AllSnapPaymentType,
	}

	snapResp, midErr := g.snap.CreateTransaction(snapReq)
	if midErr != nil {
		return nil, fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}

	return &Checkout{
		Token:       snapResp.Token,
		RedirectURL: snapResp.RedirectURL,
	}, nil
}

func (g *MidtransGateway) TransactionStatus(ctx context.Context, orderID string) (string, error) {
	res, midErr := g.core.CheckTransaction(orderID)
	if midErr != nil {
		if midErr.GetStatusCode() == http.StatusNotFound {
			return "", ErrTransactionNotFound
		}
		return "", fmt.Errorf("midtrans error: %v", midErr.GetMessage())
	}
	if res == nil || res.StatusCode == "404" {
		return "", ErrTransactionNotFound
	}
	return res.TransactionStatus, nil
}

// VerifySignature checks SHA512(order_id + status_code + gross_amount + server_key).
func (g *MidtransGateway) VerifySignature(orderID, statusCode, grossAmount, signature string) bool {
	return VerifySignature(g.serverKey, orderID, statusCode, grossAmount, signature)
}

func Signature(serverKey, orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func VerifySignature(serverKey, orderID, statusCode, grossAmount, signature string) bool {
	if serverKey == "" {
		return false
	}
	expected := Signature(serverKey, orderID, statusCode, grossAmount)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
