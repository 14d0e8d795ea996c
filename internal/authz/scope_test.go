package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeTopTierExclusive(t *testing.T) {
	// A management-tier scope (order 2) admits only users of exactly order 2.
	// Outranking does not grant entry; this asymmetry against the lower tiers
	// is deliberate policy, do not "fix" it.
	assert.True(t, CanAccessScope(TierManagement, Ranked(2)))
	assert.False(t, CanAccessScope(TierManagement, Ranked(1)))
	assert.False(t, CanAccessScope(TierManagement, Ranked(0)))
	assert.False(t, CanAccessScope(TierManagement, Unranked))
	assert.False(t, CanAccessScope(TierManagement, Ranked(3)))
}

func TestScopeLowerTiersInclusiveUpward(t *testing.T) {
	// Orders 0 and 1 admit any user of equal or higher order.
	for userOrder := 0; userOrder <= 2; userOrder++ {
		assert.Equal(t, userOrder >= TierMember, CanAccessScope(TierMember, Ranked(userOrder)),
			"member scope, user order %d", userOrder)
		assert.True(t, CanAccessScope(TierCandidate, Ranked(userOrder)),
			"candidate scope, user order %d", userOrder)
	}
}

func TestScopeUnrankedDeniedEverywhereOrdered(t *testing.T) {
	for _, targetOrder := range []int{TierCandidate, TierMember, TierManagement} {
		assert.False(t, CanAccessScope(targetOrder, Unranked), "target order %d", targetOrder)
	}
}

func TestScopeMemberRankAgainstTiers(t *testing.T) {
	// Rank resolving to order 1: candidate scope allowed, management denied.
	member := Ranked(TierMember)
	assert.True(t, CanAccessScope(TierCandidate, member))
	assert.True(t, CanAccessScope(TierMember, member))
	assert.False(t, CanAccessScope(TierManagement, member))
}

func TestGlobalChannelOpenToApprovedUsers(t *testing.T) {
	rutbe := "UYE"
	assert.True(t, CanAccessGlobal(AuthContext{UserID: "u1", Approved: true, Rutbe: &rutbe}))
	// Rankless users still read the global channel.
	assert.True(t, CanAccessGlobal(AuthContext{UserID: "u2", Approved: true}))

	assert.False(t, CanAccessGlobal(AuthContext{UserID: "u3", Approved: false}))
	assert.False(t, CanAccessGlobal(AuthContext{Approved: true}))
}
