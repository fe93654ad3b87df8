package service

import (
	"context"
	"errors"

	"github.com/iliyamo/webseries-catalog/internal/apperr"
	"github.com/iliyamo/webseries-catalog/internal/model"
	"github.com/iliyamo/webseries-catalog/internal/repository"
)

// RoleReader looks up a viewer's current role.
type RoleReader interface {
	ViewerRole(ctx context.Context, id uint64) (model.Role, error)
}

// Gate checks the acting viewer's stored role against an allow-list. The
// role claim inside the session token is never consulted, so a demotion
// takes effect on the next request.
type Gate struct {
	roles RoleReader
}

func NewGate(roles RoleReader) *Gate { return &Gate{roles: roles} }

// Within returns a gate reading roles through q, so a check can run inside
// the transaction that performs the guarded write.
func (g *Gate) Within(q RoleReader) *Gate { return &Gate{roles: q} }

func (g *Gate) currentRole(ctx context.Context, viewerID uint64) (model.Role, error) {
	const op = "service.Gate.currentRole"
	role, err := g.roles.ViewerRole(ctx, viewerID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, apperr.Unauthenticated("account no longer exists")
	}
	if err != nil {
		return 0, apperr.Internal(op, err)
	}
	return role, nil
}

func forbidden(allowed model.RoleSet, current model.Role) *apperr.Error {
	return apperr.Forbidden("insufficient permissions").
		With("required", allowed.Names()).
		With("current", current.String())
}

// Authorize returns the viewer's role when it is in allowed.
func (g *Gate) Authorize(ctx context.Context, viewerID uint64, allowed model.RoleSet) (model.Role, error) {
	role, err := g.currentRole(ctx, viewerID)
	if err != nil {
		return 0, err
	}
	if !allowed.Has(role) {
		return role, forbidden(allowed, role)
	}
	return role, nil
}

// AuthorizeOwnerOrRole passes when viewerID owns the resource or holds one
// of roles.
func (g *Gate) AuthorizeOwnerOrRole(ctx context.Context, viewerID, ownerID uint64, roles model.RoleSet) error {
	role, err := g.currentRole(ctx, viewerID)
	if err != nil {
		return err
	}
	if viewerID == ownerID || roles.Has(role) {
		return nil
	}
	return apperr.Forbidden("you can only modify your own reviews").With("current", role.String())
}
