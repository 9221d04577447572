package config

import "fmt"

// Linker-injected build metadata, for example:
//
//	go build -ldflags "-X zbxrelay/internal/config.version=1.2.3 \
//	    -X zbxrelay/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X zbxrelay/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/zbxrelay
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}

// UserAgent is the default collector User-Agent for this build.
func (b BuildInfo) UserAgent() string {
	return fmt.Sprintf("zbxrelay/%s", b.Version)
}
