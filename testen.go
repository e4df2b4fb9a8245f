// Package testen runs a project's test command against several Node.js
// versions and reports the outcome per version.
package testen

// Version is the testen release.
const Version = "0.3.0"
