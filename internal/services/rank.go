package services

import (
	"context"
	"errors"

	"kovan/internal/authz"
	"kovan/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ranks is the administrator surface for ranks and rank groups.
type Ranks struct {
	db *gorm.DB
}

func NewRanks(db *gorm.DB) *Ranks {
	return &Ranks{db: db}
}

type RankInput struct {
	Name        string
	Description string
	Permissions *authz.Matrix
	GroupID     *string
}

// CreateRank stores a new rank with its permission matrix.
func (s *Ranks) CreateRank(ctx context.Context, input RankInput) (*models.Rank, error) {
	matrixJSON, err := encodeMatrix(input.Permissions)
	if err != nil {
		return nil, authz.Policy("invalid permission matrix")
	}

	rank := &models.Rank{
		Name:        input.Name,
		Description: input.Description,
		Permissions: matrixJSON,
		GroupID:     input.GroupID,
	}
	if err := s.db.WithContext(ctx).Create(rank).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, authz.Policy("rank name already exists")
		}
		return nil, authz.Storage(err)
	}
	return rank, nil
}

// UpdateRank replaces name, description, matrix and group assignment.
func (s *Ranks) UpdateRank(ctx context.Context, rankID string, input RankInput) (*models.Rank, error) {
	var rank models.Rank
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", rankID, false).
		First(&rank).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authz.NotFound("rank not found")
	}
	if err != nil {
		return nil, authz.Storage(err)
	}

	matrixJSON, err := encodeMatrix(input.Permissions)
	if err != nil {
		return nil, authz.Policy("invalid permission matrix")
	}

	rank.Name = input.Name
	rank.Description = input.Description
	rank.Permissions = matrixJSON
	rank.GroupID = input.GroupID
	if err := s.db.WithContext(ctx).Save(&rank).Error; err != nil {
		return nil, authz.Storage(err)
	}
	return &rank, nil
}

// DeleteRank refuses while any user still holds the rank by name.
func (s *Ranks) DeleteRank(ctx context.Context, rankID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rank models.Rank
		err := tx.Where("id = ? AND is_deleted = ?", rankID, false).First(&rank).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.NotFound("rank not found")
		}
		if err != nil {
			return authz.Storage(err)
		}

		var holders int64
		if err := tx.Model(&models.User{}).
			Where("rutbe = ? AND is_deleted = ?", rank.Name, false).
			Count(&holders).Error; err != nil {
			return authz.Storage(err)
		}
		if holders > 0 {
			return authz.Policy("rank is still assigned to users")
		}

		if err := tx.Model(&rank).Update("is_deleted", true).Error; err != nil {
			return authz.Storage(err)
		}
		return nil
	})
}

type GroupInput struct {
	Name        string
	Description string
	Order       int
}

// CreateGroup stores a new rank group with its privilege order.
func (s *Ranks) CreateGroup(ctx context.Context, input GroupInput) (*models.RoleGroup, error) {
	group := &models.RoleGroup{
		Name:        input.Name,
		Description: input.Description,
		Order:       input.Order,
	}
	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, authz.Policy("group name already exists")
		}
		return nil, authz.Storage(err)
	}
	return group, nil
}

// DeleteGroup refuses while the group still owns ranks.
func (s *Ranks) DeleteGroup(ctx context.Context, groupID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.RoleGroup
		err := tx.Where("id = ? AND is_deleted = ?", groupID, false).First(&group).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return authz.NotFound("group not found")
		}
		if err != nil {
			return authz.Storage(err)
		}

		var owned int64
		if err := tx.Model(&models.Rank{}).
			Where("group_id = ? AND is_deleted = ?", groupID, false).
			Count(&owned).Error; err != nil {
			return authz.Storage(err)
		}
		if owned > 0 {
			return authz.Policy("group still owns ranks")
		}

		if err := tx.Model(&group).Update("is_deleted", true).Error; err != nil {
			return authz.Storage(err)
		}
		return nil
	})
}

// MatrixOf decodes a rank's stored permission matrix.
func MatrixOf(rank *models.Rank) (*authz.Matrix, error) {
	if rank == nil {
		return authz.ParseMatrix(nil)
	}
	return authz.ParseMatrix(rank.Permissions)
}

func encodeMatrix(m *authz.Matrix) (datatypes.JSON, error) {
	if m == nil {
		return datatypes.JSON([]byte(`{}`)), nil
	}
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
