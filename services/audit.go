package services

import (
	"context"
	"time"

	"codegalaxy/db"
	"codegalaxy/models"
	"codegalaxy/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ClientInfo describes where a request came from
type ClientInfo struct {
	IP        string
	UserAgent string
}

// ActivityPublisher fans activity events out to live clients.
type ActivityPublisher interface {
	Publish(event models.ActivityEvent)
}

// auditor writes best-effort audit records and activity events.
type auditor struct {
	store db.Store
	feed  ActivityPublisher
	log   *zap.Logger
	now   func() time.Time
}

func newAuditor(store db.Store, feed ActivityPublisher, log *zap.Logger) auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return auditor{store: store, feed: feed, log: log, now: time.Now}
}

func (a auditor) record(ctx context.Context, entry models.LogEntry, client ClientInfo) {
	if client.IP != "" {
		entry.IPAddress = utils.MaskIP(client.IP)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now()
	}
	if err := a.store.AppendLog(ctx, &entry); err != nil {
		a.log.Error("failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (a auditor) userAction(ctx context.Context, userID primitive.ObjectID, action string, details map[string]interface{}, client ClientInfo) {
	a.record(ctx, models.LogEntry{
		Type:     models.LogUserAction,
		Action:   action,
		Severity: models.SeverityInfo,
		UserID:   userID,
		Details:  details,
	}, client)
}

func (a auditor) adminAction(ctx context.Context, adminID primitive.ObjectID, action string, details map[string]interface{}) {
	a.record(ctx, models.LogEntry{
		Type:     models.LogAdminAction,
		Action:   action,
		Severity: models.SeverityInfo,
		AdminID:  adminID,
		Details:  details,
	}, ClientInfo{})
}

func (a auditor) security(ctx context.Context, action, severity string, details map[string]interface{}, client ClientInfo) {
	a.record(ctx, models.LogEntry{
		Type:     models.LogSecurityEvent,
		Action:   action,
		Severity: severity,
		Details:  details,
	}, client)
}

func (a auditor) publish(eventType string, userID primitive.ObjectID, userName, message string, data map[string]interface{}) {
	if a.feed == nil {
		return
	}
	a.feed.Publish(models.ActivityEvent{
		Type:      eventType,
		UserID:    userID.Hex(),
		UserName:  userName,
		Message:   message,
		Data:      data,
		Timestamp: a.now(),
	})
}
