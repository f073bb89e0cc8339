//go:build !unix

package main

func errnoName(error) string {
	return ""
}
