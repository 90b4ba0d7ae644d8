package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/TangJia025/simplejs/internal/config"
	simplejs "github.com/TangJia025/simplejs/pkg/embed"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [options] [file...]

Options:
  -e <code>        evaluate code and print the result
  -mem <bytes>     arena size (default %d)
  -gc <bytes>      collection threshold
  -stack <bytes>   max call stack budget
  -config <path>   load simplejs.yaml options
  -help            show this help

With no file and a terminal on stdin, an interactive REPL starts.
`, os.Args[0], config.DefaultArenaSize)
}

func isSourceFile(path string) bool {
	for _, ext := range config.SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func main() {
	opts := &config.Options{}
	var files []string
	var inline string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-help", "--help", "help":
			usage()
			return
		case "-e", "-mem", "-gc", "-stack", "-config":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "%s requires an argument\n", arg)
				os.Exit(2)
			}
			i++
			val := args[i]
			switch arg {
			case "-e":
				inline = val
			case "-config":
				loaded, err := config.LoadOptions(val)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(2)
				}
				opts = loaded
			default:
				n, err := strconv.Atoi(val)
				if err != nil {
					fmt.Fprintf(os.Stderr, "%s: not a byte count: %s\n", arg, val)
					os.Exit(2)
				}
				switch arg {
				case "-mem":
					opts.ArenaBytes = n
				case "-gc":
					opts.GCThresholdBytes = n
				case "-stack":
					opts.MaxCallStackBytes = n
				}
			}
		default:
			files = append(files, arg)
		}
	}

	engine, err := newEngine(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if inline != "" {
		if !run(engine, inline, true) {
			os.Exit(1)
		}
		return
	}
	if len(files) > 0 {
		for _, path := range files {
			if !isSourceFile(path) {
				fmt.Fprintf(os.Stderr, "warning: %s has no recognized extension\n", path)
			}
			src, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if !run(engine, string(src), false) {
				os.Exit(1)
			}
		}
		return
	}
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		repl(engine)
		return
	}
	src, err := readAll(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !run(engine, src, true) {
		os.Exit(1)
	}
}

func newEngine(opts *config.Options) (*simplejs.Engine, error) {
	size := opts.ArenaBytes
	if size == 0 {
		size = config.DefaultArenaSize
	}
	engine, err := simplejs.NewWithSize(size)
	if err != nil {
		return nil, err
	}
	if opts.GCThresholdBytes > 0 {
		engine.SetGCThreshold(opts.GCThresholdBytes)
	}
	if opts.MaxCallStackBytes > 0 {
		engine.SetMaxCallStackBytes(opts.MaxCallStackBytes)
	}
	registerBuiltins(engine)
	return engine, nil
}

// registerBuiltins wires the handful of host functions the harness
// offers: print, gc, and stats.
func registerBuiltins(engine *simplejs.Engine) {
	engine.Register("print", func(e *simplejs.Engine, args []simplejs.Value) simplejs.Value {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = e.ToString(a)
		}
		fmt.Println(strings.Join(parts, " "))
		return simplejs.Undefined()
	})
	engine.Register("gc", func(e *simplejs.Engine, args []simplejs.Value) simplejs.Value {
		e.Collect()
		return simplejs.Undefined()
	})
	engine.Register("stats", func(e *simplejs.Engine, args []simplejs.Value) simplejs.Value {
		s := e.Stats()
		obj := e.CreateObject()
		if simplejs.IsError(obj) {
			return obj
		}
		e.SetProperty(obj, "usedBytes", simplejs.Number(float64(s.UsedBytes)))
		e.SetProperty(obj, "allocationCount", simplejs.Number(float64(s.AllocationCount)))
		e.SetProperty(obj, "gcCycles", simplejs.Number(float64(s.GCCycles)))
		return obj
	})
}

func run(engine *simplejs.Engine, src string, echo bool) bool {
	res := engine.Eval(src)
	if simplejs.IsError(res) {
		fmt.Fprintln(os.Stderr, engine.ToString(res))
		return false
	}
	if echo {
		fmt.Println(engine.ToString(res))
	}
	return true
}

func repl(engine *simplejs.Engine) {
	fmt.Printf("simplejs (instance %s, arena %d bytes)\n", engine.ID(), engine.Stats().UsedBytes)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == ".exit" {
			return
		}
		res := engine.Eval(line)
		fmt.Println(engine.ToString(res))
	}
}

func readAll(f *os.File) (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	return sb.String(), scanner.Err()
}
