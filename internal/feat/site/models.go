package site

// Output describes the build destination on the overview page.
type Output struct {
	Path string
	// Time is the formatted time of the last build or a placeholder.
	Time      string
	Built     bool
	Artifacts int
	Dirty     int
}
