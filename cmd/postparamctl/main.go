// Command postparamctl encodes and decodes post parameters from the command
// line, either locally or against a running postparamd.
package main

import (
	"fmt"
	"io"
	"os"
)

const cliBanner = "postparam CLI (postparamctl)"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	env := &cmdEnv{stdin: stdin, stdout: stdout, stderr: stderr}

	switch args[0] {
	case "encode", "decode", "encode-post", "decode-post":
		return runCodec(env, args[0], args[1:])
	case "detect":
		return runDetect(env, args[1:])
	case "recipe":
		if len(args) < 2 {
			fmt.Fprintln(stderr, "recipe subcommand required")
			return 2
		}
		switch args[1] {
		case "list":
			return runRecipeList(env, args[2:])
		case "show":
			return runRecipeShow(env, args[2:])
		case "run":
			return runRecipeRun(env, args[2:])
		default:
			fmt.Fprintf(stderr, "unknown recipe subcommand: %s\n", args[1])
			return 2
		}
	case "version", "--version":
		return runVersion(env, args[1:])
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, cliBanner)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: postparamctl <command> [flags] [text...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  encode        Base64 encode text")
	fmt.Fprintln(w, "  decode        decode Base64 to text")
	fmt.Fprintln(w, "  encode-post   encode text as an obfuscated post parameter")
	fmt.Fprintln(w, "  decode-post   decode an obfuscated post parameter")
	fmt.Fprintln(w, "  detect        guess the encoding of a value and decode it")
	fmt.Fprintln(w, "  recipe        list, show or run recipes")
	fmt.Fprintln(w, "  version       print the version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Input is taken from the arguments, or stdin when none are given.")
}

// cmdEnv carries the streams a command reads from and writes to.
type cmdEnv struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}
