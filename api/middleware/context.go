package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ctxSubjectID   contextKey = "subject_id"
	ctxRole        contextKey = "actor_role"
	ctxAffiliateID contextKey = "affiliate_id"
)

func SubjectIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSubjectID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// AffiliateIDFromContext returns the authenticated affiliate's id, or
// uuid.Nil for admin sessions.
func AffiliateIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxAffiliateID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithRole injects the actor role into the context, mainly for tests.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// WithAffiliateID injects the affiliate identifier into the context.
func WithAffiliateID(ctx context.Context, affiliateID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAffiliateID, affiliateID)
}
