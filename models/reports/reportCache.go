package reports

import (
	"context"
	"time"

	"github.com/mmdatafocus/barstock_backend/utils"
	"github.com/sirupsen/logrus"
)

const reportSlowMs = 500

func logSlowReport(ctx context.Context, logger *logrus.Logger, name string, started time.Time, extra logrus.Fields) {
	d := time.Since(started)
	if logger == nil || d.Milliseconds() < reportSlowMs {
		return
	}
	barId, _ := utils.GetBarIdFromContext(ctx)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	fields := logrus.Fields{
		"report":         name,
		"ms":             d.Milliseconds(),
		"bar_id":         barId,
		"correlation_id": cid,
	}
	for k, v := range extra {
		fields[k] = v
	}
	logger.WithFields(fields).Warn("slow_report")
}
