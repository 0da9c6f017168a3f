package model

// CreationResult is the backend's description of a newly provisioned panel.
type CreationResult struct {
	LoginURL string      `json:"login_url"`
	User     PanelUser   `json:"user"`
	Server   PanelServer `json:"server"`
}

// PanelUser is the account created for the panel.
type PanelUser struct {
	ID       Text   `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// PanelServer describes the server instance backing the panel.
type PanelServer struct {
	ID   Text `json:"id"`
	Name Text `json:"name"`
	RAM  Text `json:"ram"`
	CPU  Text `json:"cpu"`
	Disk Text `json:"disk"`
}

// AffordanceKind says what acting on an Affordance does.
type AffordanceKind int

const (
	AffordanceCopy AffordanceKind = iota // copy Value to the clipboard
	AffordanceOpen                       // open Value as a URL
)

// Affordance is an action offered alongside a rendered result.
type Affordance struct {
	Kind  AffordanceKind
	Label string
	Value string
}

// Affordances returns the actions offered for a created panel: copy the
// username, copy the password, open the login URL.
func (r CreationResult) Affordances() []Affordance {
	return []Affordance{
		{Kind: AffordanceCopy, Label: "Copy Username", Value: r.User.Username},
		{Kind: AffordanceCopy, Label: "Copy Password", Value: r.User.Password},
		{Kind: AffordanceOpen, Label: "Open Panel", Value: r.LoginURL},
	}
}
