package authz

import (
	"context"
	"errors"

	"kovan/internal/models"

	"gorm.io/gorm"
)

// Tier orders in use. Higher order is more privileged.
const (
	TierCandidate  = 0
	TierMember     = 1
	TierManagement = 2
)

// Tier is a user's resolved position in the group ordering. The zero value is
// Unranked: a user whose rank is missing or whose rank has no group. Unranked
// is below every ordered tier, including order 0.
type Tier struct {
	Order  int
	Ranked bool
}

// Unranked is the lowest possible trust level.
var Unranked = Tier{}

// Ranked builds an ordered tier.
func Ranked(order int) Tier {
	return Tier{Order: order, Ranked: true}
}

// Directory is the rank/group lookup the resolver depends on.
type Directory interface {
	// FindRankByName returns the rank with its group preloaded, or nil when
	// no such rank exists.
	FindRankByName(ctx context.Context, name string) (*models.Rank, error)
	// ListGroups returns every role group.
	ListGroups(ctx context.Context) ([]models.RoleGroup, error)
}

// Resolver maps a user's rank name to its group order.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// ResolveUserTier looks up the rank by name and returns its group's order.
// A nil rank name, a missing rank, or a rank without a group all resolve to
// Unranked. A lookup failure is surfaced as a storage error; it must never
// degrade into an allow.
func (r *Resolver) ResolveUserTier(ctx context.Context, rutbe *string) (Tier, error) {
	if rutbe == nil || *rutbe == "" {
		return Unranked, nil
	}

	rank, err := r.dir.FindRankByName(ctx, *rutbe)
	if err != nil {
		return Unranked, Storage(err)
	}
	if rank == nil || rank.Group == nil {
		return Unranked, nil
	}
	return Ranked(rank.Group.Order), nil
}

// GormDirectory implements Directory on the application database.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) FindRankByName(ctx context.Context, name string) (*models.Rank, error) {
	var rank models.Rank
	err := d.db.WithContext(ctx).
		Preload("Group").
		Where("name = ? AND is_deleted = ?", name, false).
		First(&rank).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rank, nil
}

func (d *GormDirectory) ListGroups(ctx context.Context) ([]models.RoleGroup, error) {
	var groups []models.RoleGroup
	err := d.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("\"order\" DESC").
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}
