package wayfarer

// Version is the current wayfarer release.
const Version = "0.1.0"
