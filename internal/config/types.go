package config

// Source modes
const (
	SourceLive    = "live"
	SourceArchive = "archive"
)

// ValidLogLevels lists the accepted logging.level values.
var ValidLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}
