package authz

import (
	"context"
	"errors"

	"kovan/internal/models"

	"gorm.io/gorm"
)

// AuthContext is the per-request identity snapshot built by the JWT
// middleware. It is always passed explicitly; decision functions never read
// ambient state.
type AuthContext struct {
	UserID   string
	Rutbe    *string // rank name, nil when rankless
	Matrix   *Matrix
	Approved bool
}

// Authenticated reports whether the context belongs to a real session.
func (a AuthContext) Authenticated() bool {
	return a.UserID != ""
}

// CanAccessScope is the core tier rule, applied identically to reading,
// posting, forwarding and searching within a scope:
//
//   - a management-tier target (order 2) admits only users of exactly order 2;
//     outranking does not grant entry
//   - lower targets admit any user of equal or higher order
//   - unranked users are denied for every ordered target
func CanAccessScope(targetOrder int, user Tier) bool {
	if !user.Ranked {
		return false
	}
	if targetOrder >= TierManagement {
		return user.Order == targetOrder
	}
	return user.Order >= targetOrder
}

// CanAccessGlobal decides the unscoped channel: open to any authenticated,
// approved user, ranked or not.
func CanAccessGlobal(auth AuthContext) bool {
	return auth.Authenticated() && auth.Approved
}

// Scopes answers scope-access questions against live group data.
type Scopes struct {
	db       *gorm.DB
	resolver *Resolver
	dir      Directory
}

func NewScopes(db *gorm.DB) *Scopes {
	dir := NewGormDirectory(db)
	return &Scopes{
		db:       db,
		resolver: NewResolver(dir),
		dir:      dir,
	}
}

// Resolver exposes the tier resolver for callers that only need ordering.
func (s *Scopes) Resolver() *Resolver {
	return s.resolver
}

// Authorize decides access to a conversation scope. A nil groupID is the
// global channel. The returned error carries the denial taxonomy: denied,
// not-found or storage.
func (s *Scopes) Authorize(ctx context.Context, auth AuthContext, groupID *string) error {
	if !auth.Authenticated() {
		return Denied("not authorized")
	}
	if !auth.Approved {
		return Denied("membership not approved")
	}
	if groupID == nil {
		return nil
	}

	var group models.RoleGroup
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", *groupID, false).
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("group not found")
	}
	if err != nil {
		return Storage(err)
	}

	tier, err := s.resolver.ResolveUserTier(ctx, auth.Rutbe)
	if err != nil {
		return err
	}
	if !CanAccessScope(group.Order, tier) {
		return Denied("rank does not grant access to this group")
	}
	return nil
}

// AccessibleGroups lists every group the user's tier admits, used when a
// request names no explicit scope (search-everywhere, scope pickers).
func (s *Scopes) AccessibleGroups(ctx context.Context, auth AuthContext) ([]models.RoleGroup, error) {
	if !auth.Authenticated() || !auth.Approved {
		return nil, Denied("not authorized")
	}

	tier, err := s.resolver.ResolveUserTier(ctx, auth.Rutbe)
	if err != nil {
		return nil, err
	}

	groups, err := s.dir.ListGroups(ctx)
	if err != nil {
		return nil, Storage(err)
	}

	accessible := make([]models.RoleGroup, 0, len(groups))
	for _, group := range groups {
		if CanAccessScope(group.Order, tier) {
			accessible = append(accessible, group)
		}
	}
	return accessible, nil
}
