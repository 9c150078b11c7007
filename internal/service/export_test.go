package service

import (
	"context"

	"go-gin-cinema-reservation/internal/model"
)

// AdminCancelWithSnapshot 以呼叫端持有的（可能已過時的）訂位執行管理端取消
func AdminCancelWithSnapshot(ctx context.Context, s ReservationService, reservation *model.Reservation) error {
	return s.(*ReservationServiceImpl).adminCancel(ctx, reservation)
}
