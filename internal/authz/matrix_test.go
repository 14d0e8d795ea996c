package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMatrixFailClosed(t *testing.T) {
	// Malformed or missing matrices deny every (resource, action) pair.
	var nilMatrix *Matrix
	for _, resource := range []Resource{ResourceUsers, ResourceMessages, ResourcePolls, ResourceUserApproval} {
		assert.False(t, nilMatrix.Allows(resource, ActionRead))
		assert.False(t, nilMatrix.AllowsAny(resource))
	}

	empty, err := ParseMatrix(nil)
	require.NoError(t, err)
	assert.False(t, empty.Allows(ResourceMessages, ActionCreate))
	assert.False(t, empty.AllowsAny(ResourceUserApproval))

	_, err = ParseMatrix([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseMatrixAbsentResourceDenies(t *testing.T) {
	m, err := ParseMatrix([]byte(`{"messages":{"create":true,"read":true}}`))
	require.NoError(t, err)

	assert.True(t, m.Allows(ResourceMessages, ActionCreate))
	assert.True(t, m.Allows(ResourceMessages, ActionRead))
	assert.False(t, m.Allows(ResourceMessages, ActionUpdate))

	// "polls" never appears in the stored matrix: all actions denied
	assert.False(t, m.Allows(ResourcePolls, ActionRead))
	assert.False(t, m.AllowsAny(ResourcePolls))
}

func TestParseMatrixLegacyUsersReadObject(t *testing.T) {
	// Older ranks stored users.read as {"enabled": bool}; both forms decode.
	legacy, err := ParseMatrix([]byte(`{"users":{"read":{"enabled":true},"create":false}}`))
	require.NoError(t, err)
	assert.True(t, legacy.Allows(ResourceUsers, ActionRead))
	assert.False(t, legacy.Allows(ResourceUsers, ActionCreate))

	plain, err := ParseMatrix([]byte(`{"users":{"read":true}}`))
	require.NoError(t, err)
	assert.True(t, plain.Allows(ResourceUsers, ActionRead))

	disabled, err := ParseMatrix([]byte(`{"users":{"read":{"enabled":false}}}`))
	require.NoError(t, err)
	assert.False(t, disabled.Allows(ResourceUsers, ActionRead))
}

func TestParseMatrixUserApproval(t *testing.T) {
	m, err := ParseMatrix([]byte(`{"userApproval":{"approve":true,"reject":false}}`))
	require.NoError(t, err)

	assert.True(t, m.Allows(ResourceUserApproval, ActionApprove))
	assert.False(t, m.Allows(ResourceUserApproval, ActionReject))
	assert.True(t, m.AllowsAny(ResourceUserApproval))

	// CRUD actions are invalid on userApproval
	assert.False(t, m.Allows(ResourceUserApproval, ActionRead))
	assert.False(t, m.Allows(ResourceUserApproval, ActionCreate))

	// approval actions are invalid on every other resource
	granted, err := ParseMatrix([]byte(`{"messages":{"create":true,"read":true,"update":true,"delete":true}}`))
	require.NoError(t, err)
	assert.False(t, granted.Allows(ResourceMessages, ActionApprove))
}

func TestAllowsAnyExistenceCheck(t *testing.T) {
	m, err := ParseMatrix([]byte(`{"events":{"delete":true},"meetings":{}}`))
	require.NoError(t, err)

	assert.True(t, m.AllowsAny(ResourceEvents))
	assert.False(t, m.AllowsAny(ResourceMeetings))
}

func TestAllowsStringsRejectsUnknownKeys(t *testing.T) {
	m, err := ParseMatrix([]byte(`{"messages":{"read":true}}`))
	require.NoError(t, err)

	assert.True(t, m.AllowsStrings("messages", "read"))
	assert.True(t, m.AllowsStrings("messages", ""))
	assert.False(t, m.AllowsStrings("messages", "drop"))
	assert.False(t, m.AllowsStrings("__proto__", "read"))
	assert.False(t, m.AllowsStrings("constructor", ""))
}

func TestParseMatrixIgnoresUnknownResources(t *testing.T) {
	// Dangerous or unknown keys in stored JSON are dropped, not carried.
	m, err := ParseMatrix([]byte(`{"__proto__":{"read":true},"gadgets":{"read":true},"roles":{"read":true}}`))
	require.NoError(t, err)

	assert.True(t, m.Allows(ResourceRoles, ActionRead))
	assert.False(t, m.AllowsStrings("gadgets", "read"))
}

func TestMatrixGrantRoundTrip(t *testing.T) {
	m := (*Matrix)(nil).
		Grant(ResourceMessages, ActionSet{Create: true, Read: true}).
		GrantApproval(ApprovalSet{Approve: true})

	data, err := m.MarshalJSON()
	require.NoError(t, err)

	decoded, err := ParseMatrix(data)
	require.NoError(t, err)
	assert.True(t, decoded.Allows(ResourceMessages, ActionCreate))
	assert.False(t, decoded.Allows(ResourceMessages, ActionDelete))
	assert.True(t, decoded.Allows(ResourceUserApproval, ActionApprove))
	assert.False(t, decoded.Allows(ResourceUserApproval, ActionReject))
}
