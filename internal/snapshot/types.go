// Package snapshot implements the Snapshot Builder (spec §4.3): walking
// the accessibility tree (falling back to a fixed DOM selector union when
// the tree yields nothing interactive) into an ordered sequence of
// SnapshotElements, each backed by a freshly assigned @e-ref.
package snapshot

// Role is one of the fixed, closed set of interactive roles. Narrower
// than the teacher's own isInteractiveRole in internal/agent/tools/
// browser.go (which also admits listbox, option, menuitemcheckbox,
// menuitemradio, textarea) — this set is the authoritative one from
// spec §3.
type Role string

const (
	RoleButton     Role = "button"
	RoleLink       Role = "link"
	RoleTextbox    Role = "textbox"
	RoleCombobox   Role = "combobox"
	RoleCheckbox   Role = "checkbox"
	RoleRadio      Role = "radio"
	RoleMenuitem   Role = "menuitem"
	RoleTab        Role = "tab"
	RoleSwitch     Role = "switch"
	RoleSlider     Role = "slider"
	RoleSpinbutton Role = "spinbutton"
	RoleSearchbox  Role = "searchbox"
)

var interactiveRoles = map[Role]bool{
	RoleButton: true, RoleLink: true, RoleTextbox: true, RoleCombobox: true,
	RoleCheckbox: true, RoleRadio: true, RoleMenuitem: true, RoleTab: true,
	RoleSwitch: true, RoleSlider: true, RoleSpinbutton: true, RoleSearchbox: true,
}

// IsInteractive reports whether role is in the fixed interactive set.
func IsInteractive(role string) bool {
	return interactiveRoles[Role(role)]
}

// stateProperties are the boolean-ish AX properties a compactLine renders
// as state tokens when true.
var stateProperties = []string{"focused", "checked", "selected", "expanded", "disabled", "required"}

// Element is the SnapshotElement from spec §3.
type Element struct {
	Ref         string            `json:"ref"`
	AXNodeID    string            `json:"axNodeId,omitempty"`
	DOMPath     string            `json:"domPath,omitempty"`
	Role        string            `json:"role"`
	Name        string            `json:"name"`
	CompactLine string            `json:"compactLine"`
	Properties  map[string]string `json:"properties"`
}

// Viewport is the PageInfo viewport from spec §3.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PageInfo is spec §3's PageInfo.
type PageInfo struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Viewport Viewport `json:"viewport"`
}

// Data is spec §3's SnapshotData: an ordered element sequence plus page
// metadata.
type Data struct {
	Elements []Element `json:"elements"`
	Page     PageInfo  `json:"page"`
}

// Options configures TakeSnapshot. KeepExistingRefs, when true, leaves
// the registry's existing entries in place instead of clearing them
// first — used by pre-action snapshots so the same ref continues to
// identify the same node when the post-action snapshot runs.
type Options struct {
	KeepExistingRefs bool
}
