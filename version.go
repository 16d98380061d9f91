// Package msbuildrunner runs MSBuild-compatible build tools and reports
// their outcome.
package msbuildrunner

// Version is the msbuild-runner release version.
const Version = "0.4.0"
