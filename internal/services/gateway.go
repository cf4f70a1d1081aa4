package services

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// GatewayConfig holds the gateway credentials. Passed in explicitly so the
// client is constructed and injected rather than reaching for package-level
// state.
type GatewayConfig struct {
	ServerKey  string
	ClientKey  string
	Production bool
}

// GatewayService wraps the Midtrans Snap and Core API clients behind the
// narrow surface the billing core needs: create an order, check it, cancel it.
type GatewayService struct {
	snapClient snap.Client
	coreClient coreapi.Client
	clientKey  string
}

func NewGatewayService(cfg GatewayConfig) *GatewayService {
	env := midtrans.Sandbox
	if cfg.Production {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(cfg.ServerKey, env)

	var c coreapi.Client
	c.New(cfg.ServerKey, env)

	return &GatewayService{
		snapClient: s,
		coreClient: c,
		clientKey:  cfg.ClientKey,
	}
}

// GatewayOrder is the result of creating an order at the gateway.
type GatewayOrder struct {
	OrderID     string
	Token       string
	RedirectURL string
	Request     *snap.Request
	Response    *snap.Response
}

// CreateOrder registers a payment attempt at the gateway and returns the
// generated order id plus the checkout token/redirect URL.
func (s *GatewayService) CreateOrder(amount float64, currency, itemID, itemName, customerName, customerEmail, callbackURL string) (*GatewayOrder, error) {
	orderID := fmt.Sprintf("course-order-%s", uuid.New().String())
	gross := int64(math.Round(amount))

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: customerName,
			Email: customerEmail,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    itemID,
				Name:  itemName,
				Price: gross,
				Qty:   1,
			},
		},
		Callbacks: &snap.Callbacks{
			Finish: callbackURL,
		},
	}

	resp, err := s.snapClient.CreateTransaction(req)
	if err != nil {
		return nil, fmt.Errorf("gateway create order: %v", err)
	}

	return &GatewayOrder{
		OrderID:     orderID,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		Request:     req,
		Response:    resp,
	}, nil
}

// CheckTransaction fetches the gateway-side status of an order.
func (s *GatewayService) CheckTransaction(orderID string) (*coreapi.TransactionStatusResponse, error) {
	resp, err := s.coreClient.CheckTransaction(orderID)
	if err != nil {
		return nil, fmt.Errorf("gateway check transaction: %v", err)
	}
	return resp, nil
}

// CancelTransaction cancels a pending order at the gateway. Best-effort: a
// failure here only leaves a dangling pending transaction on the gateway side.
func (s *GatewayService) CancelTransaction(orderID string) {
	_, _ = s.coreClient.CancelTransaction(orderID)
}

// ClientKey exposes the public key for checkout frontends.
func (s *GatewayService) ClientKey() string {
	return s.clientKey
}
