// Package authz decides whether an actor may mutate a piece of content.
package authz

import "inkpost/internal/models"

// Actor is the authenticated account performing an operation.
type Actor struct {
	UserID uint
	Role   models.Role
}

// CanMutateComment allows the comment's author, or anyone whose role holds
// capability. Callers must have loaded the comment already so that a missing
// comment surfaces as NOT_FOUND rather than FORBIDDEN.
func CanMutateComment(comment *models.Comment, actor Actor, capability models.Capability) error {
	if actor.UserID != 0 && comment.UserID == actor.UserID {
		return nil
	}
	if actor.Role.Can(capability) {
		return nil
	}
	return models.NewForbiddenError("You are not allowed to modify this comment.").
		WithRule("comment.not_owner")
}

// Require fails unless actor's role holds capability.
func Require(actor Actor, capability models.Capability) error {
	if actor.Role.Can(capability) {
		return nil
	}
	return models.NewForbiddenError("You do not have permission to perform this action.").
		WithRule("role.missing_capability")
}

// SelfOr allows access to a user's own resources, or to anyone whose role
// holds capability.
func SelfOr(actor Actor, ownerID uint, capability models.Capability) error {
	if actor.UserID != 0 && actor.UserID == ownerID {
		return nil
	}
	return Require(actor, capability)
}
