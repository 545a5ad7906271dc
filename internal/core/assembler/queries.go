package assembler

import "fmt"

var singleTemplates = []string{
	"Find %s's %s",
	"Where is %s's %s?",
	"Locate %s's %s",
	"Retrieve %s's %s position",
	"Identify the position of %s's %s",
	"Give me the coordinates of %s's %s",
}

var multiTemplates = []string{
	"Find one of %s's %ss",
	"Where is one of %s's %ss?",
	"Locate one of %s's %ss",
	"Retrieve one of %s's %ss position",
	"Identify the position of one of %s's %ss",
	"Give me the coordinates of one of %s's %ss",
}

// Queries phrases requests for owner's object. Without augment only the
// first phrasing is returned. multi asks for any one of several instances.
func Queries(category, owner string, augment, multi bool) []string {
	templates := singleTemplates
	if multi {
		templates = multiTemplates
	}
	if !augment {
		templates = templates[:1]
	}
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = fmt.Sprintf(t, owner, category)
	}
	return out
}
