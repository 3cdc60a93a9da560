package version

// Version is overridden at build time via -ldflags.
var Version string = "0.0.0"
