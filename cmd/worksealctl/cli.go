package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "keygen":
		return runKeygen(args[2:])
	case "encrypt":
		return runEncrypt(args[2:])
	case "decrypt":
		return runDecrypt(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "worksealctl"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s keygen [--curve <P-256|P-384|P-521>] [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s encrypt --key <keyfile> --region <region> --workload-type <type> --in <file> [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s decrypt --key <keyfile> --in <package.json> [--out <file>]\n", name)
}
