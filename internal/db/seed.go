package db

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"kovan/internal/authz"
	"kovan/internal/config"
	"kovan/internal/models"
	console "kovan/internal/utils/logger"
)

var seedLog = console.New("SEEDER")

// Default tier groups, most privileged first.
var defaultGroups = []models.RoleGroup{
	{Name: "Yönetim", Description: "Management board", Order: authz.TierManagement},
	{Name: "Üye", Description: "Full members", Order: authz.TierMember},
	{Name: "Aday", Description: "Candidate members", Order: authz.TierCandidate},
}

func fullAccess() *authz.Matrix {
	var m *authz.Matrix
	all := authz.ActionSet{Create: true, Read: true, Update: true, Delete: true}
	for _, resource := range []authz.Resource{
		authz.ResourceUsers,
		authz.ResourceMeetings,
		authz.ResourceEvents,
		authz.ResourceRoles,
		authz.ResourceMessages,
		authz.ResourcePolls,
	} {
		m = m.Grant(resource, all)
	}
	return m.GrantApproval(authz.ApprovalSet{Approve: true, Reject: true})
}

func memberAccess() *authz.Matrix {
	var m *authz.Matrix
	m = m.Grant(authz.ResourceUsers, authz.ActionSet{Read: true})
	m = m.Grant(authz.ResourceMeetings, authz.ActionSet{Read: true})
	m = m.Grant(authz.ResourceEvents, authz.ActionSet{Read: true})
	m = m.Grant(authz.ResourceMessages, authz.ActionSet{Create: true, Read: true})
	m = m.Grant(authz.ResourcePolls, authz.ActionSet{Create: true, Read: true})
	return m
}

func candidateAccess() *authz.Matrix {
	var m *authz.Matrix
	m = m.Grant(authz.ResourceEvents, authz.ActionSet{Read: true})
	m = m.Grant(authz.ResourceMessages, authz.ActionSet{Create: true, Read: true})
	m = m.Grant(authz.ResourcePolls, authz.ActionSet{Read: true})
	return m
}

func guestAccess() *authz.Matrix {
	var m *authz.Matrix
	return m.Grant(authz.ResourceMessages, authz.ActionSet{Read: true})
}

// SeedRanks creates the default tier groups and ranks with their permission
// matrices. Existing rows are left untouched so local edits survive restarts.
func SeedRanks(gdb *gorm.DB) error {
	groupIDs := make(map[string]string, len(defaultGroups))
	for _, group := range defaultGroups {
		g := group
		if err := gdb.Where(models.RoleGroup{Name: g.Name}).
			Attrs(models.RoleGroup{Description: g.Description, Order: g.Order}).
			FirstOrCreate(&g).Error; err != nil {
			return fmt.Errorf("failed to seed group %s: %w", g.Name, err)
		}
		groupIDs[g.Name] = g.ID
	}

	defaultRanks := []struct {
		name        string
		description string
		group       string // empty = no group, no tier
		matrix      *authz.Matrix
	}{
		{"BASKAN", "Chairperson", "Yönetim", fullAccess()},
		{"UYE", "Member", "Üye", memberAccess()},
		{"ADAY", "Candidate", "Aday", candidateAccess()},
		{"MISAFIR", "Guest", "", guestAccess()},
	}

	for _, rank := range defaultRanks {
		permissions, err := rank.matrix.MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to encode matrix for %s: %w", rank.name, err)
		}

		row := models.Rank{Name: rank.name}
		attrs := models.Rank{
			Description: rank.description,
			Permissions: datatypes.JSON(permissions),
		}
		if rank.group != "" {
			groupID := groupIDs[rank.group]
			attrs.GroupID = &groupID
		}

		if err := gdb.Where(models.Rank{Name: rank.name}).
			Attrs(attrs).
			FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("failed to seed rank %s: %w", rank.name, err)
		}
		seedLog.Info("Seeded rank: %s", rank.name)
	}

	return nil
}

// CreateSuperAdminFromEnv bootstraps the first administrator. It is a no-op
// once any BASKAN user exists.
func CreateSuperAdminFromEnv(gdb *gorm.DB, cfg *config.Config) error {
	rutbe := "BASKAN"

	var count int64
	gdb.Model(&models.User{}).Where("rutbe = ?", rutbe).Count(&count)
	if count > 0 {
		return nil
	}

	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return fmt.Errorf("SUPERADMIN_EMAIL and SUPERADMIN_PASSWORD must be set")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		FirstName:        cfg.Admin.Name,
		Email:            cfg.Admin.Email,
		Password:         string(hashedPassword),
		Rutbe:            &rutbe,
		MembershipStatus: models.MembershipApproved,
	}

	if err := gdb.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create superadmin user: %w", err)
	}

	seedLog.Success("Created superadmin: %s", user.Email)
	return nil
}
