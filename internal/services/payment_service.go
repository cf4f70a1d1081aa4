package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"coursepay_echo/internal/models"
)

// PaymentService starts payment attempts: it owns PaymentOrder creation and
// the resume-or-replace behavior for pending checkouts.
type PaymentService struct {
	db        *gorm.DB
	ledgers   *LedgerService
	directory CourseDirectory
	gateway   *GatewayService
}

func NewPaymentService(db *gorm.DB, ledgers *LedgerService, directory CourseDirectory, gateway *GatewayService) *PaymentService {
	return &PaymentService{db: db, ledgers: ledgers, directory: directory, gateway: gateway}
}

// InitiatePaymentResult holds the result of an initiation attempt. ClientKey
// is the gateway's public key the checkout frontend embeds.
type InitiatePaymentResult struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	ClientKey   string `json:"client_key"`
	IsExisting  bool   `json:"is_existing"`
}

// activeOrder finds a still-open order for the same installment, if any.
func (s *PaymentService) activeOrder(ctx context.Context, userID, courseID uint, index int) (*models.PaymentOrder, error) {
	var orders []models.PaymentOrder
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND status = ? AND payment_mode = ?",
			userID, courseID, models.OrderStatusCreated, models.PaymentModeInstallment).
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if d := orders[i].InstallmentDetails; d != nil && d.InstallmentIndex == index {
			return &orders[i], nil
		}
	}
	return nil, nil
}

// InitiatePayment creates (or resumes) the gateway order for one installment
// of the caller's enrollment. The PaymentOrder row is created up front in
// "created" status; the reconciler moves it to a terminal state when the
// gateway confirms.
func (s *PaymentService) InitiatePayment(ctx context.Context, user *models.User, courseID uint, index int, forceNew bool, callbackURL string) (*InitiatePaymentResult, error) {
	ledger, err := s.ledgers.Get(ctx, user.ID, courseID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(ledger.PlanSnapshot.Installments) {
		return nil, fmt.Errorf("%w: index %d, plan has %d installments",
			ErrIndexOutOfRange, index, len(ledger.PlanSnapshot.Installments))
	}
	if ledger.HasPaid(index) {
		return nil, fmt.Errorf("%w: index %d", ErrInstallmentAlreadyPaid, index)
	}

	existing, err := s.activeOrder(ctx, user.ID, courseID, index)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if forceNew {
			s.gateway.CancelTransaction(existing.OrderID)
			s.db.WithContext(ctx).Model(existing).Update("status", models.OrderStatusFailed)
		} else {
			var gw GatewayOrder
			if err := json.Unmarshal(existing.ResponseMetadata, &gw.Response); err == nil && gw.Response != nil {
				return &InitiatePaymentResult{
					OrderID:     existing.OrderID,
					Token:       gw.Response.Token,
					RedirectURL: gw.Response.RedirectURL,
					ClientKey:   s.gateway.ClientKey(),
					IsExisting:  true,
				}, nil
			}
			// Stored response is unreadable; retire the order and start over.
			s.db.WithContext(ctx).Model(existing).Update("status", models.OrderStatusFailed)
		}
	}

	course, err := s.directory.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	amount := ledger.PlanSnapshot.Installments[index].Amount
	itemName := fmt.Sprintf("Installment %d/%d for %s", index+1, ledger.PlanSnapshot.NumberOfInstallments, course.Title)
	gwOrder, err := s.gateway.CreateOrder(amount, "IDR",
		fmt.Sprintf("course-%d", courseID), itemName, user.Name, user.Email, callbackURL)
	if err != nil {
		return nil, err
	}

	reqBytes, _ := json.Marshal(gwOrder.Request)
	respBytes, _ := json.Marshal(gwOrder.Response)

	order := models.PaymentOrder{
		OrderID:        gwOrder.OrderID,
		Amount:         amount,
		Currency:       "IDR",
		Status:         models.OrderStatusCreated,
		UserID:         user.ID,
		CourseID:       courseID,
		PaymentMode:    models.PaymentModeInstallment,
		PaymentGateway: models.PaymentGatewayMidtrans,
		InstallmentDetails: &models.OrderInstallmentDetails{
			InstallmentIndex:  index,
			TotalInstallments: ledger.PlanSnapshot.NumberOfInstallments,
			InstallmentAmount: amount,
		},
		RequestMetadata:  reqBytes,
		ResponseMetadata: respBytes,
	}
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, err
	}

	return &InitiatePaymentResult{
		OrderID:     gwOrder.OrderID,
		Token:       gwOrder.Token,
		RedirectURL: gwOrder.RedirectURL,
		ClientKey:   s.gateway.ClientKey(),
	}, nil
}

// VerifyOrderStatus cross-checks a created order against the gateway and
// fails it locally when the gateway says the attempt is dead. Used by status
// polling so stale sessions do not pile up.
func (s *PaymentService) VerifyOrderStatus(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, err
	}
	if order.Terminal() {
		return &order, nil
	}

	status, err := s.gateway.CheckTransaction(order.OrderID)
	if err != nil {
		return &order, nil
	}
	switch status.TransactionStatus {
	case "deny", "expire", "cancel", "failure":
		s.db.WithContext(ctx).Model(&models.PaymentOrder{}).
			Where("order_id = ? AND status = ?", order.OrderID, models.OrderStatusCreated).
			Update("status", models.OrderStatusFailed)
		order.Status = models.OrderStatusFailed
	}
	return &order, nil
}
