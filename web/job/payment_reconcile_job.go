package job

import (
	"context"
	"time"

	"github.com/satyogainstitute/portal/web/service"
)

// PaymentReconcileJob re-queries the payment provider for records stuck
// in pending and re-relays journaled form submissions.
type PaymentReconcileJob struct {
	tilopayService *service.TilopayService
	formService    *service.FormService
}

func NewPaymentReconcileJob(tilopayService *service.TilopayService, formService *service.FormService) *PaymentReconcileJob {
	return &PaymentReconcileJob{
		tilopayService: tilopayService,
		formService:    formService,
	}
}

func (j *PaymentReconcileJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	j.tilopayService.ReconcilePending(ctx)
	j.formService.RetryUnrelayed(ctx)
}
