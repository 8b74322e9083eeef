package authapi

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AuditLogs stores the per user audit trail
type AuditLogs interface {
	Append(ctx context.Context, subject string, userID uuid.UUID, ipAddress string) (*AuditLog, error)
	AppendTx(ctx context.Context, tx bun.IDB, subject string, userID uuid.UUID, ipAddress string) (*AuditLog, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*AuditLog, error)
}

type auditLogs struct {
	db *bun.DB
}

var _ AuditLogs = (*auditLogs)(nil)

func NewAuditLogsRepository(db *bun.DB) AuditLogs {
	return &auditLogs{db: db}
}

func (a *auditLogs) Append(ctx context.Context, subject string, userID uuid.UUID, ipAddress string) (*AuditLog, error) {
	return a.AppendTx(ctx, a.db, subject, userID, ipAddress)
}

func (a *auditLogs) AppendTx(ctx context.Context, tx bun.IDB, subject string, userID uuid.UUID, ipAddress string) (*AuditLog, error) {
	now := time.Now()
	record := &AuditLog{
		ID:        uuid.New(),
		Subject:   subject,
		UserID:    userID,
		IPAddress: ipAddress,
		CreatedAt: &now,
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to append audit log")
	}

	return record, nil
}

// ListByUser returns the user's entries newest first.
func (a *auditLogs) ListByUser(ctx context.Context, userID uuid.UUID) ([]*AuditLog, error) {
	records := []*AuditLog{}

	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list audit logs")
	}

	return records, nil
}

// AuditTrailSink persists auth activity as audit trail entries. Events
// without an audit subject are ignored so telemetry noise never hits the
// table.
type AuditTrailSink struct {
	logs   AuditLogs
	logger Logger
}

var _ ActivitySink = (*AuditTrailSink)(nil)

func NewAuditTrailSink(logs AuditLogs, logger Logger) *AuditTrailSink {
	if logger == nil {
		logger = defLogger{}
	}
	return &AuditTrailSink{
		logs:   logs,
		logger: logger,
	}
}

func (s *AuditTrailSink) Record(ctx context.Context, event ActivityEvent) error {
	subject, ok := event.EventType.AuditSubject()
	if !ok {
		return nil
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		s.logger.Warn("audit sink skipping event with invalid user id: %s", event.UserID)
		return nil
	}

	if _, err := s.logs.Append(ctx, subject, userID, event.IPAddress); err != nil {
		return err
	}

	return nil
}
