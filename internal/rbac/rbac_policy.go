package rbac

const ResourceLeave = "leave"

const (
	// ActionReview covers approve, reject, hold and request-details.
	ActionReview          = "review"
	ActionReadAll         = "read_all"
	ActionSubmitForOthers = "submit_for_others"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

type Grant struct {
	Role     string
	Resource string
	Action   string
}

// Inherit gives Role every grant of Parent.
type Inherit struct {
	Role   string
	Parent string
}

type Policy struct {
	Grants   []Grant
	Inherits []Inherit
}

// DefaultPolicy lets managers decide on leave requests; hr and admin
// inherit that.
func DefaultPolicy() Policy {
	return Policy{
		Grants: []Grant{
			{Role: "manager", Resource: ResourceLeave, Action: ActionReview},
			{Role: "manager", Resource: ResourceLeave, Action: ActionReadAll},
			{Role: "manager", Resource: ResourceLeave, Action: ActionSubmitForOthers},
		},
		Inherits: []Inherit{
			{Role: "hr", Parent: "manager"},
			{Role: "admin", Parent: "hr"},
		},
	}
}
