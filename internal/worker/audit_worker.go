package worker

import (
	"github.com/spec-kit/expert-desk/internal/service"
)

// StartAuditWorker registers the ticket history handlers.
func StartAuditWorker(auditService *service.AuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
