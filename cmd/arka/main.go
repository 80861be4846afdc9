// Command arka runs a compiled Java class on a from-scratch class-file
// interpreter (spec.md's execution engine) against a system JDK's
// java.base module as the bootstrap byte source.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arkavm/arka/pkg/vm"
)

var (
	jarPath string
	jdkPath string
	verbose bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arka <class-file> [args...]",
		Short: "Run a Java class file on the arka interpreter",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}
	cmd.Flags().StringVar(&jarPath, "jar", "", "extra jar/zip archive to search for application classes")
	cmd.Flags().StringVar(&jdkPath, "jdk", "", "path to a java.base.jmod or JDK image directory (overrides JAVA_HOME probing)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log VM diagnostics (thread spawns, native-bridge errors) to stderr")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	target := args[0]
	runArgs := args[1:]

	dir := filepath.Dir(target)
	className := strings.TrimSuffix(filepath.Base(target), ".class")

	sources, err := byteSources(dir)
	if err != nil {
		return err
	}

	v := vm.NewVM(logger, sources...)
	if err := v.Run(className, runArgs); err != nil {
		fmt.Fprintf(os.Stderr, "arka: %v\n", err)
		os.Exit(1)
	}
	return nil
}

// byteSources assembles the loader's ordered backend list: the directory
// holding the target class first, an optional --jar archive next, and the
// JDK's java.base module last (spec.md §4.2's "multiple byte-source
// backends").
func byteSources(classDir string) ([]vm.ByteSource, error) {
	sources := []vm.ByteSource{&vm.DirectorySource{Root: classDir}}

	if jarPath != "" {
		src, err := vm.NewArchiveSource(jarPath)
		if err != nil {
			return nil, fmt.Errorf("opening --jar %s: %w", jarPath, err)
		}
		sources = append(sources, src)
	}

	jmod := findJavaBaseJmod()
	if jmod == "" {
		return nil, fmt.Errorf("could not find java.base.jmod; set --jdk, ARKA_JAVA_BASE_JMOD, or JAVA_HOME")
	}
	base, err := vm.NewJmodSource(jmod)
	if err != nil {
		return nil, fmt.Errorf("opening java.base.jmod %s: %w", jmod, err)
	}
	sources = append(sources, base)
	return sources, nil
}

// findJavaBaseJmod probes, in order: --jdk, ARKA_JAVA_BASE_JMOD, JAVA_HOME,
// and a handful of common system install locations.
func findJavaBaseJmod() string {
	if jdkPath != "" {
		if p := resolveJmodPath(jdkPath); p != "" {
			return p
		}
	}
	if env := os.Getenv("ARKA_JAVA_BASE_JMOD"); env != "" {
		return env
	}
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		if p := resolveJmodPath(javaHome); p != "" {
			return p
		}
	}
	for _, pattern := range []string{
		"/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod",
		"/opt/jdk*/jmods/java.base.jmod",
	} {
		if matches, _ := filepath.Glob(pattern); len(matches) > 0 {
			return matches[0]
		}
	}
	return ""
}

// resolveJmodPath accepts either a direct path to java.base.jmod or a JDK
// home/image directory containing jmods/java.base.jmod.
func resolveJmodPath(p string) string {
	if strings.HasSuffix(p, ".jmod") {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		return ""
	}
	candidate := filepath.Join(p, "jmods", "java.base.jmod")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}

func newLogger() *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "arka: ", log.LstdFlags)
}
