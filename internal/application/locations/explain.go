package locations

import (
	"strings"

	"github.com/doeshing/fif-go/internal/domain"
)

type category struct {
	title  string
	origin domain.OriginSet
}

var categories = []category{
	{title: "Paths added because they're the working directory:", origin: domain.OriginCWD},
	{title: "Paths added because they're defined in the workspace:", origin: domain.OriginWorkspace},
	{title: "Paths added because they're the specified in the settings:", origin: domain.OriginSettings},
}

// Explain groups the roots by origin. A root with several origins is listed
// once under each of them; an empty category shows a placeholder line.
// With useColor the headers carry escape sequences meant for `echo -e`.
func Explain(roots domain.SearchRoots, useColor bool) string {
	var b strings.Builder
	unique := roots.Roots()
	for _, cat := range categories {
		if useColor {
			b.WriteString(`\033[36m` + cat.title + `\033[0m`)
		} else {
			b.WriteString(cat.title)
		}
		b.WriteString("\n")

		listed := 0
		for _, root := range unique {
			if root.Origin.Has(cat.origin) {
				b.WriteString("- " + root.Path + "\n")
				listed++
			}
		}
		if listed == 0 {
			b.WriteString("- <none>\n")
		}
	}
	return b.String()
}
