//go:build !rttdebug

package render

const debugChecks = false
