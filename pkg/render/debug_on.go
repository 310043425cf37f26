//go:build rttdebug

package render

// debugChecks enables range checks on pixel and texel access.
const debugChecks = true
