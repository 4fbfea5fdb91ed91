// Package fieldstore identifies the module release.
package fieldstore

// Version is the semantic version of the fieldstore module.
const Version = "v0.1.0"
