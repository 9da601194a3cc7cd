package action

// keySpec is the CDP triple {key, code, keyCode} a named key dispatches
// with, per spec §4.7.3's fixed name table.
type keySpec struct {
	key     string
	code    string
	keyCode int64
}

var namedKeys = map[string]keySpec{
	"enter":      {key: "Enter", code: "Enter", keyCode: 13},
	"escape":     {key: "Escape", code: "Escape", keyCode: 27},
	"tab":        {key: "Tab", code: "Tab", keyCode: 9},
	"backspace":  {key: "Backspace", code: "Backspace", keyCode: 8},
	"arrowup":    {key: "ArrowUp", code: "ArrowUp", keyCode: 38},
	"arrowdown":  {key: "ArrowDown", code: "ArrowDown", keyCode: 40},
	"arrowleft":  {key: "ArrowLeft", code: "ArrowLeft", keyCode: 37},
	"arrowright": {key: "ArrowRight", code: "ArrowRight", keyCode: 39},
	"space":      {key: " ", code: "Space", keyCode: 32},
	" ":          {key: " ", code: "Space", keyCode: 32},
}

var modifierTokens = map[string]bool{
	"control": true,
	"ctrl":    true,
	"shift":   true,
	"alt":     true,
	"meta":    true,
	"command": true,
	"cmd":     true,
}
