package main

import "fmt"

var version = "dev"

func runVersion(env *cmdEnv, args []string) int {
	fs := newFlagSet("version", env.stderr)
	if code, ok := parseFlags(fs, args, env.stderr); !ok {
		return code
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(env.stderr, "version takes no arguments")
		return 2
	}
	fmt.Fprintln(env.stdout, version)
	return 0
}
