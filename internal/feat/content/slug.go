package content

import (
	"strings"

	"github.com/gosimple/slug"
)

// slugSeparators are turned into plain separators before transliteration
// so they never become words ("and", "at") or survive as underscores.
var slugSeparators = strings.NewReplacer("&", " ", "@", " ", "_", " ")

// Slugify turns a title into a URL path segment: the title transliterated
// to ASCII, lower case letters and digits joined by single dashes.
func Slugify(title string) string {
	return slug.Make(slugSeparators.Replace(title))
}
