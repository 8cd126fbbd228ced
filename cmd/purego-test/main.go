// Package main provides a minimal standalone check that purego can load a
// system shared library and call into it without cgo, on whatever host
// this binary is run on. It exercises the same dlopen/RegisterLibFunc path
// internal/tokenize uses to probe for a native Korean morphological
// analyzer, so a failure here means that probe will never succeed either.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ebitengine/purego"
)

func main() {
	fmt.Println("purego dlopen verification")
	fmt.Printf("OS: %s, Arch: %s\n", runtime.GOOS, runtime.GOARCH)

	var libPath string
	switch runtime.GOOS {
	case "darwin":
		libPath = "/usr/lib/libSystem.B.dylib"
	case "linux":
		libPath = "libc.so.6"
	default:
		fmt.Printf("unsupported OS: %s\n", runtime.GOOS)
		os.Exit(1)
	}

	fmt.Printf("loading system library: %s\n", libPath)

	lib, err := purego.Dlopen(libPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		fmt.Printf("ERROR: failed to load library: %v\n", err)
		os.Exit(1)
	}
	defer purego.Dlclose(lib)

	fmt.Println("library loaded")

	var getpid func() int32
	purego.RegisterLibFunc(&getpid, lib, "getpid")

	pid := getpid()
	fmt.Printf("pid via purego: %d, pid via os.Getpid: %d\n", pid, os.Getpid())

	if int(pid) != os.Getpid() {
		fmt.Println("ERROR: pid mismatch")
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("dlopen + RegisterLibFunc + call succeeded on this host")
	fmt.Println("internal/tokenize's native Korean analyzer probe relies on the same mechanism")
}
