// Package authz decides who may remove content. It holds no state and does
// no I/O; callers load the actor and resource first.
package authz

import (
	"anoa.com/socialfeed/pkg/apperror"
	"github.com/google/uuid"
)

type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

type Resource struct {
	AuthorID uuid.UUID
}

// AuthorizeDelete allows admins and the resource's author.
func AuthorizeDelete(actor Actor, resource Resource) error {
	if actor.IsAdmin {
		return nil
	}
	if actor.ID != uuid.Nil && actor.ID == resource.AuthorID {
		return nil
	}
	return apperror.Forbidden("you are not allowed to delete this post")
}
