//go:build !cullassert

package cull

const assertionsEnabled = false
