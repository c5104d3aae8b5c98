//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary  = "bin/mortchart"
	mainPkg = "./cmd/mortchart"
)

// Default target - build the binary
var Default = Build

// Build builds the mortchart binary
func Build() error {
	mg.Deps(Vet)
	fmt.Println("Building", binary)
	return sh.RunV("go", "build", "-o", binary, mainPkg)
}

// Test runs all tests with the race detector
func Test() error {
	return sh.RunV("go", "test", "-race", "-count=1", "./...")
}

// Vet runs go vet
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Clean removes build artifacts
func Clean() error {
	fmt.Println("Removing bin/")
	return os.RemoveAll("bin")
}

// QA runs vet and tests
func QA() {
	mg.SerialDeps(Vet, Test)
}
