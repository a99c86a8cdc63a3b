// Command basmrun loads a BASM module and calls one exported function,
// printing its return value. The compiler front end and any richer CLI
// (REPL, flags beyond this) are out of scope; this is thin glue only.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Juicywoowowow/basm-dev/basm"
)

func main() {
	export := flag.String("export", "main", "exported function `name` to call")
	trace := flag.Bool("trace", false, "enable per-opcode trace logging")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: basmrun [-export name] [-trace] <module-file> [args...]")
		os.Exit(2)
	}

	callArgs := make([]interface{}, len(args)-1)
	for i, a := range args[1:] {
		callArgs[i] = a
	}

	mod, err := basm.LoadFile(args[0], basm.WithTrace(*trace))
	if err != nil {
		atExit(err)
	}
	mod.SetOutput(os.Stdout)

	ret, err := mod.Call(*export, callArgs...)
	if err != nil {
		atExit(err)
	}
	fmt.Println(ret)
}

func atExit(err error) {
	fmt.Fprintf(os.Stderr, "basmrun: %+v\n", err)
	os.Exit(1)
}
