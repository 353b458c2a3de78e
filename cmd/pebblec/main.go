package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/kr/pretty"

	"github.com/pebble-lang/pebblec/internal/compiler"
	"github.com/pebble-lang/pebblec/internal/logging"
	"github.com/pebble-lang/pebblec/internal/mir"
	"github.com/pebble-lang/pebblec/internal/mir/printer"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	var (
		emitMir     = flag.Bool("emit-mir", false, "print the textual MIR dump after a successful compile")
		emitMirSh   = flag.Bool("m", false, "alias for -emit-mir")
		debugDump   = flag.Bool("debug-dump", false, "pretty-print the compiled MIR module struct; the HIR is not printed (debugging aid)")
		noColor     = flag.Bool("no-color", false, "disable colored log output")
		quiet       = flag.Bool("quiet", false, "suppress non-error output")
		quietShort  = flag.Bool("q", false, "alias for -quiet")
		timeCompile = flag.Bool("time", false, "print a compilation timing summary")
		watchFlag   = flag.Bool("watch", false, "watch the input file and recompile on changes")
		watchShort  = flag.Bool("w", false, "alias for -watch")
		version     = flag.Bool("version", false, "print version and exit")
		versionSh   = flag.Bool("v", false, "alias for -version")
		verbose     = flag.Bool("verbose", false, "enable verbose logging")
		verboseSh   = flag.Bool("V", false, "alias for -verbose")
		help        = flag.Bool("help", false, "show help and exit")
		helpShort   = flag.Bool("h", false, "alias for -help")
	)
	flag.Parse()

	if *emitMirSh {
		*emitMir = true
	}
	if *quietShort {
		*quiet = true
	}
	if *watchShort {
		*watchFlag = true
	}
	if *versionSh {
		*version = true
	}
	if *verboseSh {
		*verbose = true
	}
	if *noColor {
		os.Setenv("PEBBLEC_LOG_COLOR", "false")
	}

	log := logging.Logger()
	logging.SetLevel(logging.LevelInfo)
	if *quiet {
		logging.SetLevel(logging.LevelError)
	} else if *verbose {
		logging.SetLevel(logging.LevelDebug)
	}

	if *version {
		fmt.Printf("pebblec %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	if *help || *helpShort {
		showUsage()
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		os.Exit(runREPL())
	}

	input := flag.Arg(0)

	compileOnce := func() error {
		return compileAndReport(input, *emitMir, *debugDump, *timeCompile, *quiet)
	}

	if *watchFlag {
		if err := watchAndCompile(input, compileOnce, *quiet); err != nil {
			log.ErrorString(err.Error())
			os.Exit(1)
		}
		return
	}

	if err := compileOnce(); err != nil {
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Fprintf(os.Stderr, "pebblec %s\n", Version)
	fmt.Fprintf(os.Stderr, "Built: %s\n\n", BuildTime)
	fmt.Fprintf(os.Stderr, "USAGE:\n")
	fmt.Fprintf(os.Stderr, "  pebblec [options] <file.pb>\n")
	fmt.Fprintf(os.Stderr, "  pebblec                      # enter the REPL\n\n")
	fmt.Fprintf(os.Stderr, "OPTIONS:\n")
	fmt.Fprintf(os.Stderr, "  -emit-mir, -m\n")
	fmt.Fprintf(os.Stderr, "        print the textual MIR dump after a successful compile\n")
	fmt.Fprintf(os.Stderr, "  -debug-dump\n")
	fmt.Fprintf(os.Stderr, "        pretty-print the compiled MIR module struct (not the HIR)\n")
	fmt.Fprintf(os.Stderr, "  -verbose, -V\n")
	fmt.Fprintf(os.Stderr, "        enable verbose logging\n")
	fmt.Fprintf(os.Stderr, "  -quiet, -q\n")
	fmt.Fprintf(os.Stderr, "        suppress non-error output\n")
	fmt.Fprintf(os.Stderr, "  -no-color\n")
	fmt.Fprintf(os.Stderr, "        disable colored log output\n")
	fmt.Fprintf(os.Stderr, "  -time\n")
	fmt.Fprintf(os.Stderr, "        print a compilation timing summary\n")
	fmt.Fprintf(os.Stderr, "  -watch, -w\n")
	fmt.Fprintf(os.Stderr, "        watch the input file and recompile on changes\n")
	fmt.Fprintf(os.Stderr, "  -version, -v\n")
	fmt.Fprintf(os.Stderr, "        print version and exit\n")
	fmt.Fprintf(os.Stderr, "  -help, -h\n")
	fmt.Fprintf(os.Stderr, "        show help and exit\n\n")
	fmt.Fprintf(os.Stderr, "EXAMPLES:\n")
	fmt.Fprintf(os.Stderr, "  pebblec hello.pb                # type-check and build MIR\n")
	fmt.Fprintf(os.Stderr, "  pebblec -emit-mir hello.pb       # also print the MIR dump\n")
	fmt.Fprintf(os.Stderr, "  pebblec -watch hello.pb          # recompile on every save\n")
}

// compileAndReport reads input, runs the pipeline, and reports the
// outcome. Diagnostics (parse, type, or lower errors) go to stdout,
// each prefixed with its stage name by the diagnostic type itself —
// this is a compile-time property of a single source file, not
// something worth routing through the structured logger.
func compileAndReport(input string, emitMir, debugDump, timeCompile, quiet bool) error {
	src, err := os.ReadFile(input)
	if err != nil {
		fmt.Printf("io: %v\n", err)
		return err
	}

	start := time.Now()
	mod, err := compiler.Compile(input, string(src))
	elapsed := time.Since(start)
	if err != nil {
		fmt.Println(err)
		return err
	}

	if debugDump {
		fmt.Printf("%# v\n", pretty.Formatter(mod))
	}

	if emitMir {
		fmt.Print(printer.Format(mod))
	}

	if !quiet {
		count := instrCount(mod)
		if timeCompile {
			fmt.Printf("compiled %s in %s (%s instructions)\n",
				input, elapsed.Round(time.Microsecond), humanize.Comma(int64(count)))
		} else {
			fmt.Printf("compiled %s (%s instructions)\n", input, humanize.Comma(int64(count)))
		}
	}
	return nil
}

func instrCount(mod *mir.Module) int {
	n := 0
	for _, fn := range mod.Funcs {
		for _, blk := range fn.Blocks {
			n += len(blk.Instrs) + len(blk.Phis)
		}
	}
	return n
}

// runREPL reads source line-by-line until the user types exit. Each
// non-empty line is compiled as a standalone unit; a bare stdlib
// scanner is enough here since nothing downstream needs more than
// line-buffered input and there is no reference implementation in the
// corpus worth imitating for this ambient feature.
func runREPL() int {
	fmt.Println("pebblec REPL — type a complete program on one line, or `exit` to quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("pebblec> ")
		if !scanner.Scan() {
			fmt.Println()
			return 0
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" {
			return 0
		}
		mod, err := compiler.Compile("<repl>", line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Print(printer.Format(mod))
	}
}

func watchAndCompile(path string, compile func() error, quiet bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	dir := filepath.Dir(abs)
	base := filepath.Base(abs)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	if !quiet {
		logging.Logger().InfoFields("watching for changes",
			logging.String("file", abs))
	}

	if err := compile(); err != nil {
		// Diagnostics are already printed; keep watching.
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()

	for {
		select {
		case event := <-watcher.Events:
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(200 * time.Millisecond)
		case <-debounce.C:
			if err := compile(); err != nil {
				// Diagnostics are already printed; keep watching.
			}
			debounce.Stop()
		case err := <-watcher.Errors:
			logging.Logger().ErrorFields("watch error", logging.Error("error", err))
		}
	}
}
