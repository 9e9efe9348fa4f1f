// Command memcore-inspect formats a zone/hunk system, runs a small
// synthetic workload through it, and reports the resulting diagnostics:
// a zone_check-equivalent consistency walk, a memdiag summary, and the
// layout of the allocators' own control structures. With --watch it
// re-runs the whole report every time the named config file changes,
// using fsnotify the same way the teacher's vfs package drives its
// FSNotifyWatcher.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/orizon-lang/memcore/internal/boot"
	"github.com/orizon-lang/memcore/internal/cli"
	"github.com/orizon-lang/memcore/internal/layout"
	"github.com/orizon-lang/memcore/internal/memsink"
	"github.com/orizon-lang/memcore/internal/zone"
)

// sizesConfig is the on-disk shape --watch reloads; fields left at zero
// fall back to boot's own defaults.
type sizesConfig struct {
	SmallZoneBytes uintptr `json:"small_zone_bytes"`
	MainZoneBytes  uintptr `json:"main_zone_bytes"`
	HunkBytes      uintptr `json:"hunk_bytes"`
}

func loadSizesConfig(path string) (sizesConfig, error) {
	var cfg sizesConfig

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// exitSink turns allocator Fatal errors into a terminated process, the
// way the teacher's engine code expects Com_Error(ERR_FATAL, ...) to
// behave: the report generator never catches this.
type exitSink struct{ logger *cli.Logger }

func (s exitSink) Fatal(err *memsink.StandardError) {
	cli.ExitWithError("fatal allocator error: %v", err)
}

func (s exitSink) Drop(err *memsink.StandardError) {
	s.logger.Warn("dropped allocator error: %v", err)
}

// runWorkload drives a small synthetic sequence of allocator activity
// so the report that follows has something to say: a handful of
// general-purpose allocations swept back in bulk, and one temp-memory
// round trip through the hunk.
func runWorkload(sys *boot.System) {
	sys.Main.AllocDebug(64, zone.TagGeneral, "memcore-inspect:workload")

	for i := 1; i < 8; i++ {
		sys.Main.Alloc(uintptr(64*(i+1)), zone.TagGeneral)
	}

	sys.Main.FreeTags(zone.TagGeneral)

	sys.Hunk.SetMark()

	tmp := sys.Hunk.AllocTemp(256)
	sys.Hunk.FreeTemp(tmp)
}

func controlStructureReport() string {
	c := layout.NewCalculator(8)

	blockHeader, _ := c.CalculateStructLayout("zone.blockHeader", []layout.FieldInfo{
		{Name: "next", Type: "uintptr", Size: 8, Alignment: 8},
		{Name: "prev", Type: "uintptr", Size: 8, Alignment: 8},
		{Name: "size", Type: "uintptr", Size: 8, Alignment: 8},
		{Name: "tag", Type: "int32", Size: 4, Alignment: 4},
		{Name: "id", Type: "int32", Size: 4, Alignment: 4},
	})

	tempHeader, _ := c.CalculateStructLayout("hunk.tempHeader", []layout.FieldInfo{
		{Name: "magic", Type: "uint32", Size: 4, Alignment: 4},
		{Name: "size", Type: "uint32", Size: 4, Alignment: 4},
	})

	return blockHeader.String() + "\n" + tempHeader.String()
}

func printReport(sys *boot.System, logger *cli.Logger) {
	runWorkload(sys)

	report := sys.Main.Check()

	fmt.Println("=== main zone check ===")
	fmt.Printf("blocks=%d free_blocks=%d used=%d free=%d ok=%v\n",
		report.Blocks, report.FreeBlocks, report.UsedBytes, report.FreeBytes, report.OK())

	for _, v := range report.Violations {
		logger.Error("%s", v)
	}

	fmt.Println("\n=== control structure layout ===")
	fmt.Println(controlStructureReport())

	fmt.Println("\n=== diagnostics ===")
	fmt.Println(sys.Diag.Summary())
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		showHelp    = flag.Bool("help", false, "show help information")
		jsonOutput  = flag.Bool("json", false, "output version in JSON format")
		smallBytes  = flag.Int("small-bytes", 0, "small zone size in bytes (0: use the default)")
		mainBytes   = flag.Int("main-bytes", 0, "main zone size in bytes (0: use the default)")
		hunkBytes   = flag.Int("hunk-bytes", 0, "hunk size in bytes (0: use the default)")
		watchPath   = flag.String("watch", "", "config file to watch for live size changes")
		verbose     = flag.Bool("verbose", false, "verbose output")
	)

	flag.Usage = func() {
		cli.PrintUsage("memcore-inspect", []cli.CommandInfo{
			{Name: "(default)", Description: "run one report and exit"},
		})
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		cli.PrintVersion("memcore-inspect", *jsonOutput)
		os.Exit(0)
	}

	logger := cli.NewLogger(*verbose)

	fileCfg, err := loadSizesConfig(*watchPath)
	if err != nil {
		cli.ExitWithError("%v", err)
	}

	cfg := boot.Config{
		SmallZoneBytes: uintptr(*smallBytes),
		MainZoneBytes:  uintptr(*mainBytes),
		HunkBytes:      uintptr(*hunkBytes),
	}

	if cfg.SmallZoneBytes == 0 {
		cfg.SmallZoneBytes = fileCfg.SmallZoneBytes
	}

	if cfg.MainZoneBytes == 0 {
		cfg.MainZoneBytes = fileCfg.MainZoneBytes
	}

	if cfg.HunkBytes == 0 {
		cfg.HunkBytes = fileCfg.HunkBytes
	}

	sys, err := boot.Init(exitSink{logger: logger}, cfg)
	if err != nil {
		cli.ExitWithError("boot.Init: %v", err)
	}

	printReport(sys, logger)

	if *watchPath == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		cli.ExitWithError("fsnotify.NewWatcher: %v", err)
	}
	defer watcher.Close()

	if err := watcher.Add(*watchPath); err != nil {
		cli.ExitWithError("watch %s: %v", *watchPath, err)
	}

	logger.Info("watching %s for changes", *watchPath)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			fileCfg, err := loadSizesConfig(*watchPath)
			if err != nil {
				logger.Error("reload %s: %v", *watchPath, err)

				continue
			}

			sys, err = boot.Init(exitSink{logger: logger}, boot.Config(fileCfg))
			if err != nil {
				logger.Error("re-init: %v", err)

				continue
			}

			printReport(sys, logger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			logger.Error("watch error: %v", err)
		}
	}
}
