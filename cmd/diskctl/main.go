// Package main is diskctl, an offline tool that classifies VM storage and reconciles
// the disks of VirtualMachine manifests with their DataVolumes and claims.
//
// Import Path: kv-shepherd.io/vmwizard/cmd/diskctl
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "diskctl: %v\n", err)
		os.Exit(1)
	}
}
