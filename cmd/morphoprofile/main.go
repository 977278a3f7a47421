// Package main provides the morphoprofile CLI for outline morphometry.
package main

func main() {
	Execute()
}
