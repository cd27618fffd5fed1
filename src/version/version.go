package version

// Version is the current release version of incus-autobackup.
// Overridden at build time via -ldflags "-X incus-autobackup/src/version.Version=...".
var Version = "0.3.0"
