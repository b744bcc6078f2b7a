package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"apotek/backend/internal/domain"
	"apotek/backend/internal/store"
	"apotek/backend/internal/xid"
)

func (s *Service) StartShift(ctx context.Context) (domain.ShiftResponse, error) {
	operator, err := operatorID(ctx)
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	shift, err := s.repo.StartShift(ctx, domain.Shift{
		ID:         xid.New("shift"),
		OperatorID: operator,
		StartTime:  s.now(),
	})
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	s.logAudit(ctx, "shift_start", "shift", shift.ID, "operator="+operator)
	return domain.ShiftResponse{Shift: *shift}, nil
}

func (s *Service) EndShift(ctx context.Context) (domain.ShiftResponse, error) {
	operator, err := operatorID(ctx)
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	shift, err := s.repo.EndShift(ctx, operator, s.now())
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	s.logAudit(ctx, "shift_end", "shift", shift.ID, fmt.Sprintf("operator=%s,total_cash=%s", operator, shift.TotalCash))
	return domain.ShiftResponse{Shift: *shift}, nil
}

// GetActiveShift reports the caller's open shift. Having none is not an error.
func (s *Service) GetActiveShift(ctx context.Context) (domain.ActiveShiftResponse, error) {
	operator, err := operatorID(ctx)
	if err != nil {
		return domain.ActiveShiftResponse{}, err
	}

	shift, err := s.repo.GetActiveShift(ctx, operator)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ActiveShiftResponse{}, nil
		}
		return domain.ActiveShiftResponse{}, err
	}
	return domain.ActiveShiftResponse{Shift: shift}, nil
}

func (s *Service) GetShift(ctx context.Context, id string) (domain.Shift, error) {
	shift, err := s.repo.GetShift(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Shift{}, err
	}
	return *shift, nil
}

func (s *Service) ListShifts(ctx context.Context, operator string, limit int) (domain.ShiftListResponse, error) {
	shifts, err := s.repo.ListShifts(ctx, strings.TrimSpace(operator), limit)
	if err != nil {
		return domain.ShiftListResponse{}, err
	}
	return domain.ShiftListResponse{Shifts: shifts}, nil
}

// DeleteShift removes a closed shift that never recorded a sale.
func (s *Service) DeleteShift(ctx context.Context, id string) (domain.Shift, error) {
	id = strings.TrimSpace(id)
	shift, err := s.repo.GetShift(ctx, id)
	if err != nil {
		return domain.Shift{}, err
	}
	if err := s.repo.DeleteShift(ctx, id); err != nil {
		return domain.Shift{}, err
	}
	s.logAudit(ctx, "shift_delete", "shift", id, "")
	return *shift, nil
}
