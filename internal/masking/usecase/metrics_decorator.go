package usecase

import (
	"context"
	"time"

	"github.com/sakhi-health/chatvault/internal/metrics"
)

// maskingEngineWithMetrics decorates MaskingEngine with metrics instrumentation.
type maskingEngineWithMetrics struct {
	next    MaskingEngine
	metrics metrics.BusinessMetrics
}

// NewMaskingEngineWithMetrics wraps a MaskingEngine with metrics recording.
func NewMaskingEngineWithMetrics(engine MaskingEngine, m metrics.BusinessMetrics) MaskingEngine {
	return &maskingEngineWithMetrics{
		next:    engine,
		metrics: m,
	}
}

// MaskHybrid records metrics for outgoing text masking.
func (e *maskingEngineWithMetrics) MaskHybrid(ctx context.Context, userID, text string) (string, error) {
	start := time.Now()
	masked, err := e.next.MaskHybrid(ctx, userID, text)

	status := "success"
	if err != nil {
		status = "error"
	}

	e.metrics.RecordOperation(ctx, "masking", "mask_hybrid", status)
	e.metrics.RecordDuration(ctx, "masking", "mask_hybrid", time.Since(start), status)

	return masked, err
}

// UnmaskMedicalOnly records metrics for medical-only unmasking. The operation
// cannot fail, so status is always success.
func (e *maskingEngineWithMetrics) UnmaskMedicalOnly(text string) string {
	ctx := context.Background()
	start := time.Now()
	restored := e.next.UnmaskMedicalOnly(text)

	e.metrics.RecordOperation(ctx, "masking", "unmask_medical", "success")
	e.metrics.RecordDuration(ctx, "masking", "unmask_medical", time.Since(start), "success")

	return restored
}

// UnmaskPII records metrics for identity unmasking.
func (e *maskingEngineWithMetrics) UnmaskPII(ctx context.Context, userID, text string) (string, error) {
	start := time.Now()
	restored, err := e.next.UnmaskPII(ctx, userID, text)

	status := "success"
	if err != nil {
		status = "error"
	}

	e.metrics.RecordOperation(ctx, "masking", "unmask_pii", status)
	e.metrics.RecordDuration(ctx, "masking", "unmask_pii", time.Since(start), status)

	return restored, err
}
