package utils

import (
	"context"
	"log"
	"time"

	"fertilizer_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// Actions d'audit
const (
	ActionUserRegister   = "user.register"
	ActionLoginSuccess   = "auth.login_success"
	ActionLoginFailed    = "auth.login_failed"
	ActionProfileUpdate  = "user.update"
	ActionPasswordChange = "user.password_change"
	ActionOrderCreate    = "order.create"
	ActionOrderCancel    = "order.cancel"
	ActionReviewCreate   = "review.create"
	ActionReviewUpdate   = "review.update"
	ActionReviewDelete   = "review.delete"
)

// Ressources d'audit
const (
	ResourceUser   = "user"
	ResourceAuth   = "auth"
	ResourceOrder  = "order"
	ResourceReview = "review"
)

const auditTimeout = 5 * time.Second

type Auditor interface {
	Record(ctx context.Context, entry models.AuditLog) error
}

// LogAction enregistre une action réussie, en arrière-plan.
func LogAction(a Auditor, c *gin.Context, action, resource, resourceID string) {
	record(a, newEntry(c, action, resource, resourceID, true, ""))
}

// LogFailedAction enregistre une action refusée ou en échec.
func LogFailedAction(a Auditor, c *gin.Context, action, resource, resourceID, errorMsg string) {
	record(a, newEntry(c, action, resource, resourceID, false, errorMsg))
}

// newEntry lit le contexte gin avant de rendre la main : il ne doit pas
// être utilisé après la fin de la requête.
func newEntry(c *gin.Context, action, resource, resourceID string, success bool, errorMsg string) models.AuditLog {
	return models.AuditLog{
		UserID:     c.GetString("user_id"),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
		Success:    success,
		ErrorMsg:   errorMsg,
		Timestamp:  time.Now().UTC(),
	}
}

func record(a Auditor, entry models.AuditLog) {
	if a == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := a.Record(ctx, entry); err != nil {
			log.Printf("❌ Erreur enregistrement log audit: %v", err)
		}
	}()
}

// ScyllaAuditor écrit le journal d'audit dans ScyllaDB.
type ScyllaAuditor struct {
	session *gocql.Session
}

func NewScyllaAuditor(session *gocql.Session) *ScyllaAuditor {
	return &ScyllaAuditor{session: session}
}

// EnsureSchema crée la table audit_logs si besoin.
func (s *ScyllaAuditor) EnsureSchema(ctx context.Context) error {
	return s.session.Query(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id timeuuid PRIMARY KEY,
			user_id text,
			action text,
			resource text,
			resource_id text,
			ip_address text,
			user_agent text,
			success boolean,
			error_msg text,
			timestamp timestamp
		)`).WithContext(ctx).Exec()
}

func (s *ScyllaAuditor) Record(ctx context.Context, e models.AuditLog) error {
	return s.session.Query(`
		INSERT INTO audit_logs (
			id, user_id, action, resource, resource_id,
			ip_address, user_agent, success, error_msg, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gocql.TimeUUID(), e.UserID, e.Action, e.Resource, e.ResourceID,
		e.IPAddress, e.UserAgent, e.Success, e.ErrorMsg, e.Timestamp,
	).WithContext(ctx).Exec()
}

// LogAuditor écrit le journal d'audit dans les logs du serveur, quand
// ScyllaDB n'est pas configuré.
type LogAuditor struct{}

func (LogAuditor) Record(_ context.Context, e models.AuditLog) error {
	status := "✅"
	if !e.Success {
		status = "⛔"
	}
	log.Printf("%s audit %s %s/%s user=%s ip=%s %s", status, e.Action, e.Resource, e.ResourceID, e.UserID, e.IPAddress, e.ErrorMsg)
	return nil
}
