package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/metrics"
	"apotek/backend/internal/store"
	"apotek/backend/internal/xid"
)

func (s *Service) CreateCredit(ctx context.Context, req domain.CreditCreateRequest) (domain.Credit, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" {
		return domain.Credit{}, fmt.Errorf("%w: customer_name is required", store.ErrValidation)
	}
	if !req.TotalAmount.IsPositive() {
		return domain.Credit{}, fmt.Errorf("%w: total_amount must be positive", store.ErrValidation)
	}
	dueDate, err := parseOptionalDate("due_date", req.DueDate)
	if err != nil {
		return domain.Credit{}, err
	}

	created, err := s.repo.CreateCredit(ctx, domain.Credit{
		ID:            xid.New("credit"),
		CustomerName:  req.CustomerName,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Description:   strings.TrimSpace(req.Description),
		TotalAmount:   req.TotalAmount,
		DueDate:       dueDate,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return domain.Credit{}, err
	}

	s.logAudit(ctx, "credit_create", "credit", created.ID, fmt.Sprintf("customer=%s,total=%s", created.CustomerName, created.TotalAmount))
	return *created, nil
}

func (s *Service) GetCredit(ctx context.Context, id string) (domain.Credit, error) {
	credit, err := s.repo.GetCredit(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Credit{}, err
	}
	return *credit, nil
}

func (s *Service) ListCredits(ctx context.Context, status string, limit int) (domain.CreditListResponse, error) {
	filter := store.CreditFilter{Limit: limit}
	if status = strings.ToUpper(strings.TrimSpace(status)); status != "" {
		switch domain.CreditStatus(status) {
		case domain.CreditUnpaid, domain.CreditPartiallyPaid, domain.CreditPaid, domain.CreditWrittenOff:
			filter.Status = domain.CreditStatus(status)
		default:
			return domain.CreditListResponse{}, fmt.Errorf("%w: unknown credit status %q", store.ErrValidation, status)
		}
	}

	credits, err := s.repo.ListCredits(ctx, filter)
	if err != nil {
		return domain.CreditListResponse{}, err
	}
	return domain.CreditListResponse{Credits: credits}, nil
}

// UpdateCredit edits customer details, due date or total. The total may not
// drop below what has already been paid; status is re-derived afterwards.
func (s *Service) UpdateCredit(ctx context.Context, id string, req domain.CreditUpdateRequest) (domain.Credit, error) {
	var dueDate *time.Time
	if req.DueDate != nil {
		parsed, err := parseOptionalDate("due_date", *req.DueDate)
		if err != nil {
			return domain.Credit{}, err
		}
		dueDate = parsed
	}
	if req.TotalAmount != nil && !req.TotalAmount.IsPositive() {
		return domain.Credit{}, fmt.Errorf("%w: total_amount must be positive", store.ErrValidation)
	}

	now := s.now()
	updated, err := s.repo.UpdateCredit(ctx, strings.TrimSpace(id), func(credit *domain.Credit) error {
		if req.CustomerName != nil {
			name := strings.TrimSpace(*req.CustomerName)
			if name == "" {
				return fmt.Errorf("%w: customer_name must not be empty", store.ErrValidation)
			}
			credit.CustomerName = name
		}
		if req.CustomerPhone != nil {
			credit.CustomerPhone = strings.TrimSpace(*req.CustomerPhone)
		}
		if req.Description != nil {
			credit.Description = strings.TrimSpace(*req.Description)
		}
		if req.DueDate != nil {
			credit.DueDate = dueDate
		}
		if req.TotalAmount != nil {
			if req.TotalAmount.LessThan(credit.PaidAmount) {
				return fmt.Errorf("%w: total %s is below paid amount %s", store.ErrInvalidState, req.TotalAmount, credit.PaidAmount)
			}
			credit.TotalAmount = *req.TotalAmount
		}
		credit.Status = domain.DeriveCreditStatus(credit.Status, credit.PaidAmount, credit.TotalAmount)
		credit.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Credit{}, err
	}

	s.logAudit(ctx, "credit_update", "credit", updated.ID, fmt.Sprintf("total=%s,status=%s", updated.TotalAmount, updated.Status))
	return *updated, nil
}

func (s *Service) PayCredit(ctx context.Context, id string, req domain.CreditPaymentRequest) (domain.Credit, error) {
	if !req.Amount.IsPositive() {
		return domain.Credit{}, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}

	now := s.now()
	var payment domain.CreditPayment
	updated, err := s.repo.UpdateCredit(ctx, strings.TrimSpace(id), func(credit *domain.Credit) error {
		var err error
		payment, err = credit.ApplyPayment(xid.New("payment"), req.Amount, now)
		return err
	})
	if err != nil {
		return domain.Credit{}, err
	}

	metrics.CreditPaymentsTotal.Inc()
	s.logAudit(ctx, "credit_payment", "credit", updated.ID, fmt.Sprintf("payment=%s,amount=%s,status=%s", payment.ID, payment.Amount, updated.Status))
	return *updated, nil
}

func (s *Service) WriteOffCredit(ctx context.Context, id string) (domain.Credit, error) {
	now := s.now()
	updated, err := s.repo.UpdateCredit(ctx, strings.TrimSpace(id), func(credit *domain.Credit) error {
		return credit.WriteOff(now)
	})
	if err != nil {
		return domain.Credit{}, err
	}

	s.logAudit(ctx, "credit_write_off", "credit", updated.ID, "outstanding="+updated.Outstanding().String())
	return *updated, nil
}

func (s *Service) DeleteCredit(ctx context.Context, id string) (domain.Credit, error) {
	id = strings.TrimSpace(id)
	credit, err := s.repo.GetCredit(ctx, id)
	if err != nil {
		return domain.Credit{}, err
	}
	if err := s.repo.DeleteCredit(ctx, id); err != nil {
		return domain.Credit{}, err
	}
	s.logAudit(ctx, "credit_delete", "credit", id, "")
	return *credit, nil
}

// TotalUnpaid sums the outstanding balance of every open credit.
func (s *Service) TotalUnpaid(ctx context.Context) (domain.UnpaidTotalResponse, error) {
	total, err := s.repo.TotalUnpaid(ctx)
	if err != nil {
		return domain.UnpaidTotalResponse{}, err
	}
	return domain.UnpaidTotalResponse{TotalUnpaid: total}, nil
}
