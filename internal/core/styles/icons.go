package styles

// Tip: To find icons use https://github.com/loichyan/nerdfix

var (
	IconBook     = "" //
	IconBookmark = "" //
	IconImage    = "" //
	IconList     = "" //
	IconClock    = "" //
	IconWarning  = "" //
	IconInfo     = "" //
)
