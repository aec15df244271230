//go:build mage
// +build mage

package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/mt-sre/devkube/magedeps"
	"golang.org/x/mod/semver"
)

const (
	module       = "smoker.run"
	minGoVersion = "1.21.0"
)

// Directories
var (
	// Working directory of the project.
	workDir string
	// Dependency directory.
	depsDir magedeps.DependencyDirectory
)

// Testing and Linting
// -------------------

type Test mg.Namespace

// Runs unittests.
func (Test) Unit() error {
	mg.Deps(Test.GoVersion)

	return sh.RunWithV(map[string]string{
		// needed to enable race detector -race
		"CGO_ENABLED": "1",
	}, "go", "test", "-cover", "-v", "-race", "./internal/...", "./cmd/...")
}

// Runs linters.
func (Test) Lint() error {
	mg.Deps(Dependency.GolangciLint)

	return sh.RunV(path.Join(depsDir.Bin(), "golangci-lint"), "run", "./...", "--deadline=15m")
}

func (Test) GoModTidy() error {
	return sh.Run("go", "mod", "tidy")
}

// Smokes the smoker: builds the binary and runs it against a scratch package
// with the npm found on PATH.
func (Test) Smoke() error {
	mg.Deps(Build.Binary)

	if _, err := exec.LookPath("npm"); err != nil {
		fmt.Println("npm not found, skipping")
		return nil
	}

	dir, err := os.MkdirTemp("", "smoker-fixture-")
	if err != nil {
		return fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	const pkgJSON = `{"name":"smoker-fixture","version":"1.0.0","main":"index.js","scripts":{"smoke":"node index.js"}}`
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(pkgJSON), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "index.js"), []byte("module.exports = 42;\n"), 0o644); err != nil {
		return err
	}

	return sh.RunV(binaryPath(), "smoke", "--dir", dir, "--pm", "npm@system", "smoke")
}

var errRegexpMatchNotFound = errors.New("no match found for regexp")

// Ensures the go toolchain is recent enough.
func (Test) GoVersion() error {
	r := regexp.MustCompile(`\d(?:\.\d+){2}`)
	goVersion := r.FindString(runtime.Version())
	if goVersion == "" {
		return errRegexpMatchNotFound
	}
	if semver.Compare("v"+goVersion, "v"+minGoVersion) < 0 {
		return fmt.Errorf("go %s or newer required, found %s", minGoVersion, goVersion)
	}
	return nil
}

// Building
// --------

type Build mg.Namespace

// Builds the smoker binary into bin/. VERSION is embedded when set.
func (Build) Binary() error {
	ldflags := "-s -w"
	if v, ok := os.LookupEnv("VERSION"); ok {
		ldflags += fmt.Sprintf(" -X %s/internal/version.applicationVersion=%s", module, v)
	}

	return sh.RunWithV(map[string]string{"CGO_ENABLED": "0"},
		"go", "build", "-ldflags", ldflags, "-o", binaryPath(), "./cmd/smoker")
}

func binaryPath() string {
	return path.Join(workDir, "bin", "smoker")
}

// Dependencies
// ------------

// Dependency Versions
const (
	golangciLintVersion = "1.54.2"
)

type Dependency mg.Namespace

func (d Dependency) GolangciLint() error {
	return depsDir.GoInstall("golangci-lint",
		"github.com/golangci/golangci-lint/cmd/golangci-lint", golangciLintVersion)
}

func init() {
	var err error
	// Directories
	workDir, err = os.Getwd()
	if err != nil {
		panic(fmt.Errorf("getting work dir: %w", err))
	}

	depsDir = magedeps.DependencyDirectory(path.Join(workDir, ".deps"))
}
