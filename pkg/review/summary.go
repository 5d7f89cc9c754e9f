package review

import (
	"fmt"
	"strconv"
	"strings"
)

// Summary renders r as a fixed six-line text block.
func Summary(r *Review) string {
	year := "N/A"
	if r.Media.Year != nil {
		year = strconv.Itoa(*r.Media.Year)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Review: \"%s\" (%s)\n", r.Media.Type.Label(), r.Media.Title, year)
	fmt.Fprintf(&b, "Rating: %s/5.0 stars (%d%%)\n", r.Rating.Stars5, r.Rating.Percentage)
	fmt.Fprintf(&b, "Reviewed by: %s\n", r.Reviewer.Name)
	fmt.Fprintf(&b, "Platform: %s\n", r.Link.Platform)
	fmt.Fprintf(&b, "URL: %s\n", r.Link.URL)
	fmt.Fprintf(&b, "Created: %s", r.Metadata.CreatedAt.UTC().Format("1/2/2006"))
	return b.String()
}
