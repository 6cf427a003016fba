// File: cmd/hyperqctl/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// hyperqctl is an operator tool for inspecting and force-removing
// stale HyperQ segments under /dev/shm, for the case spec.md §6's
// exit semantics calls out explicitly: "if all processes die abruptly,
// the segment persists until manually removed."

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/momentics/hyperq/control"
	"github.com/momentics/hyperq/queue"
)

const shmDir = "/dev/shm"

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	rt := control.NewRuntime()
	defer rt.Close()
	control.RegisterReloadHook(func() {
		log.Printf("hyperqctl: defaults reloaded: %+v", rt.Config.GetSnapshot())
	})

	var err error
	switch args[0] {
	case "ls":
		err = runLs()
	case "stat":
		if len(args) != 2 {
			log.Fatalf("stat requires exactly one segment name")
		}
		err = runStat(args[1], rt)
	case "rm":
		if len(args) != 2 {
			log.Fatalf("rm requires exactly one segment name")
		}
		err = runRm(args[1])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("hyperqctl %s: %v", args[0], err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: hyperqctl <ls|stat NAME|rm NAME>\n")
	flag.PrintDefaults()
}

// runLs lists every non-directory entry under /dev/shm, the shared
// namespace segments created by package queue are visible in. Entries
// are not filtered by name, so segments of other programs appear too.
func runLs() error {
	entries, err := os.ReadDir(shmDir)
	if err != nil {
		return fmt.Errorf("read %s: %w", shmDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fmt.Println(e.Name())
	}
	return nil
}

// runStat prints the size in bytes of a named segment's backing file
// (headerSize()+capacity, spec.md §4.1's physical layout), then
// attaches to it to dump its live debug probes (size/head/tail/
// refcount/capacity/creator, plus platform probes) before detaching.
func runStat(name string, rt *control.Runtime) error {
	path := segmentPath(name)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	fmt.Printf("name:     %s\n", name)
	fmt.Printf("path:     %s\n", path)
	fmt.Printf("size:     %d bytes\n", info.Size())
	fmt.Printf("modified: %s\n", info.ModTime())

	q, err := queue.Open(&queue.Config{Name: name}, rt)
	if err != nil {
		return fmt.Errorf("attach %s: %w", name, err)
	}
	defer q.Close()

	control.RegisterPlatformProbes(rt.Debug)
	fmt.Println("probes:")
	for k, v := range rt.Debug.DumpState() {
		fmt.Printf("  %s: %v\n", k, v)
	}
	return nil
}

// runRm force-removes a segment's kernel-namespace entry directly,
// the manual equivalent of the last handle's shm_unlink.
func runRm(name string) error {
	path := segmentPath(name)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	fmt.Printf("removed %s\n", path)
	return nil
}

func segmentPath(name string) string {
	name = strings.TrimPrefix(name, "/")
	return filepath.Join(shmDir, name)
}
