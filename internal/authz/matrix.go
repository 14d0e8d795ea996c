package authz

import (
	"encoding/json"
)

// Resource is a closed enumeration of the permission matrix's resource kinds.
// Unknown strings parse to nothing and therefore deny, so attacker-controlled
// resource names cannot widen access.
type Resource string

const (
	ResourceUsers        Resource = "users"
	ResourceMeetings     Resource = "meetings"
	ResourceEvents       Resource = "events"
	ResourceRoles        Resource = "roles"
	ResourceMessages     Resource = "messages"
	ResourcePolls        Resource = "polls"
	ResourceUserApproval Resource = "userApproval"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	// userApproval actions; invalid on every other resource
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseResource maps a wire string onto the closed enumeration.
func ParseResource(s string) (Resource, bool) {
	switch Resource(s) {
	case ResourceUsers, ResourceMeetings, ResourceEvents, ResourceRoles,
		ResourceMessages, ResourcePolls, ResourceUserApproval:
		return Resource(s), true
	}
	return "", false
}

// ParseAction maps a wire string onto the closed enumeration.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionApprove, ActionReject:
		return Action(s), true
	}
	return "", false
}

// ActionSet is the CRUD permission set carried by every resource except
// userApproval.
type ActionSet struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// ApprovalSet is the userApproval action set.
type ApprovalSet struct {
	Approve bool `json:"approve"`
	Reject  bool `json:"reject"`
}

// Matrix is the decoded permission matrix of a rank. The zero value and the
// nil pointer deny everything (absent resource keys mean "all denied").
type Matrix struct {
	crud     map[Resource]ActionSet
	approval ApprovalSet
}

// legacyEnabled is the historical object form of users.read.
type legacyEnabled struct {
	Enabled bool `json:"enabled"`
}

// ParseMatrix decodes the stored JSON form of a permission matrix. The format
// is tolerant by design: unknown resource keys are dropped, a missing key
// denies all of its actions, and users.read is accepted both as a plain
// boolean and as the legacy {"enabled": bool} object.
func ParseMatrix(data []byte) (*Matrix, error) {
	m := &Matrix{crud: make(map[Resource]ActionSet)}
	if len(data) == 0 {
		return m, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	for key, value := range raw {
		resource, ok := ParseResource(key)
		if !ok {
			continue
		}
		if resource == ResourceUserApproval {
			var set ApprovalSet
			if err := json.Unmarshal(value, &set); err != nil {
				continue
			}
			m.approval = set
			continue
		}

		var actions map[string]json.RawMessage
		if err := json.Unmarshal(value, &actions); err != nil {
			continue
		}

		var set ActionSet
		set.Create = decodeFlag(actions["create"])
		set.Read = decodeFlag(actions["read"])
		set.Update = decodeFlag(actions["update"])
		set.Delete = decodeFlag(actions["delete"])
		m.crud[resource] = set
	}

	return m, nil
}

// decodeFlag accepts both the boolean and the legacy {"enabled": bool} forms.
func decodeFlag(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var legacy legacyEnabled
	if err := json.Unmarshal(raw, &legacy); err == nil {
		return legacy.Enabled
	}
	return false
}

// Allows reports whether the matrix grants the action on the resource.
// A nil matrix denies everything.
func (m *Matrix) Allows(resource Resource, action Action) bool {
	if m == nil {
		return false
	}
	if resource == ResourceUserApproval {
		switch action {
		case ActionApprove:
			return m.approval.Approve
		case ActionReject:
			return m.approval.Reject
		default:
			return false
		}
	}

	switch action {
	case ActionApprove, ActionReject:
		// approval actions are only valid on userApproval
		return false
	}

	set, ok := m.crud[resource]
	if !ok {
		return false
	}
	switch action {
	case ActionCreate:
		return set.Create
	case ActionRead:
		return set.Read
	case ActionUpdate:
		return set.Update
	case ActionDelete:
		return set.Delete
	}
	return false
}

// AllowsAny reports whether any action under the resource is granted; used
// for menu visibility checks.
func (m *Matrix) AllowsAny(resource Resource) bool {
	if m == nil {
		return false
	}
	if resource == ResourceUserApproval {
		return m.approval.Approve || m.approval.Reject
	}
	set, ok := m.crud[resource]
	if !ok {
		return false
	}
	return set.Create || set.Read || set.Update || set.Delete
}

// AllowsStrings is the wire-facing variant taking untrusted strings; unknown
// resource or action names deny.
func (m *Matrix) AllowsStrings(resource, action string) bool {
	res, ok := ParseResource(resource)
	if !ok {
		return false
	}
	if action == "" {
		return m.AllowsAny(res)
	}
	act, ok := ParseAction(action)
	if !ok {
		return false
	}
	return m.Allows(res, act)
}

// Grant returns a matrix copy with the action set replaced for a resource;
// used by the seeder to build default rank matrices.
func (m *Matrix) Grant(resource Resource, set ActionSet) *Matrix {
	out := &Matrix{crud: make(map[Resource]ActionSet), approval: ApprovalSet{}}
	if m != nil {
		for k, v := range m.crud {
			out.crud[k] = v
		}
		out.approval = m.approval
	}
	out.crud[resource] = set
	return out
}

// GrantApproval returns a matrix copy with the userApproval set replaced.
func (m *Matrix) GrantApproval(set ApprovalSet) *Matrix {
	out := &Matrix{crud: make(map[Resource]ActionSet)}
	if m != nil {
		for k, v := range m.crud {
			out.crud[k] = v
		}
	}
	out.approval = set
	return out
}

// MarshalJSON writes the canonical wire form (plain booleans throughout).
func (m *Matrix) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(m.crud)+1)
	for resource, set := range m.crud {
		out[string(resource)] = set
	}
	if m.approval.Approve || m.approval.Reject {
		out[string(ResourceUserApproval)] = m.approval
	}
	return json.Marshal(out)
}
