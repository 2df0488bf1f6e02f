package version

// Version is overridden at build time with -ldflags "-X github.com/jkalmus/defifolio/internal/version.Version=<tag>".
var Version = "dev"
