package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rvm/internal/config"
	"rvm/internal/ioprovider"
	"rvm/internal/vm"
)

var (
	flagIn        string
	flagOut       string
	flagErr       string
	flagLog       string
	flagVerbosity string
	flagDebug     bool
	flagColor     bool
	flagConfig    string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rvm <source-file>",
		Short: "Assemble and run a stack-machine program",
		Args:  cobra.ExactArgs(1),
		RunE:  runMain,
	}

	cmd.Flags().StringVar(&flagIn, "in", "", "input redirection file (default stdin)")
	cmd.Flags().StringVar(&flagOut, "out", "", "output redirection file (default stdout)")
	cmd.Flags().StringVar(&flagErr, "err", "", "error redirection file (default stderr)")
	cmd.Flags().StringVar(&flagLog, "log", "", "log redirection file (default stderr)")
	cmd.Flags().StringVar(&flagVerbosity, "verbosity", "", "0-3 or WARNING|EVENT|INFO|VERBOSE")
	cmd.Flags().BoolVar(&flagDebug, "debug", false, "enable the interactive single-step debugger")
	cmd.Flags().BoolVar(&flagColor, "color", false, "colorize debug trace output")
	cmd.Flags().StringVar(&flagConfig, "config", "", "path to rvm.yaml (default: alongside the source file)")

	return cmd
}

func runMain(cmd *cobra.Command, args []string) error {
	sourcePath := args[0]
	srcBytes, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}

	cfgPath := flagConfig
	if cfgPath == "" {
		cfgPath = filepath.Join(filepath.Dir(sourcePath), "rvm.yaml")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	verbosity, err := resolveVerbosity(flagVerbosity, cfg.Verbosity)
	if err != nil {
		return err
	}
	useColor := flagColor || cfg.Color
	if useColor && flagErr == "" && !isatty.IsTerminal(os.Stderr.Fd()) {
		useColor = false
	}

	inStream, closeIn, err := openReadStream(flagIn)
	if err != nil {
		return err
	}
	defer closeIn()
	outStream, closeOut, err := openWriteStream(flagOut, os.Stdout)
	if err != nil {
		return err
	}
	defer closeOut()
	errStream, closeErr, err := openWriteStream(flagErr, os.Stderr)
	if err != nil {
		return err
	}
	defer closeErr()
	logStream, closeLog, err := openWriteStream(flagLog, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	logger, err := newLogger(logStream, verbosity)
	if err != nil {
		return err
	}
	defer logger.Sync()

	runID := uuid.NewString()
	io := ioprovider.New(inStream, outStream, errStream, logger, runID, useColor)

	disk := vm.NewDisk(afero.NewOsFs())
	if cfg.Disk != nil {
		diskPath := filepath.Join(filepath.Dir(sourcePath), cfg.Disk.Name+".disk")
		if err := disk.Mount(diskPath, cfg.Disk.Name, cfg.Disk.SectorSize, cfg.Disk.SectorCount); err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("mounted disk %q: %s (%d x %d sectors)",
			cfg.Disk.Name, humanize.Bytes(uint64(disk.Size())), cfg.Disk.SectorSize, cfg.Disk.SectorCount),
			zap.String("run_id", runID))
	}

	code, labels, entry, asmErr := vm.Assemble(string(srcBytes))
	if asmErr != nil {
		fmt.Fprintln(errStream, asmErr.Error())
		os.Exit(1)
	}

	interp := vm.NewInterpreter(code, labels, entry, disk, io)

	ctx := context.Background()
	var exitCode int32
	var runErr error
	if flagDebug {
		interp.SetDebug(true)
		exitCode, runErr = runDebugger(ctx, interp)
	} else {
		exitCode, runErr = interp.Run(ctx)
	}

	if runErr != nil {
		fmt.Fprintln(errStream, runErr.Error())
		os.Exit(1)
	}
	os.Exit(int(exitCode))
	return nil
}

func resolveVerbosity(flagVal, cfgVal string) (vm.LogLevel, error) {
	val := flagVal
	if val == "" {
		val = cfgVal
	}
	if val == "" {
		return vm.LogWarning, nil
	}
	if n, err := strconv.Atoi(val); err == nil {
		if n < 0 || n > 3 {
			return 0, fmt.Errorf("verbosity out of range: %s", val)
		}
		return vm.LogLevel(n), nil
	}
	switch strings.ToUpper(val) {
	case "WARNING":
		return vm.LogWarning, nil
	case "EVENT":
		return vm.LogEvent, nil
	case "INFO":
		return vm.LogInfo, nil
	case "VERBOSE":
		return vm.LogVerbose, nil
	default:
		return 0, fmt.Errorf("unrecognized verbosity: %s", val)
	}
}

func newLogger(w zapcore.WriteSyncer, verbosity vm.LogLevel) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch verbosity {
	case vm.LogWarning:
		zapLevel = zapcore.WarnLevel
	case vm.LogEvent, vm.LogInfo:
		zapLevel = zapcore.InfoLevel
	default:
		zapLevel = zapcore.DebugLevel
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), w, zapLevel)
	return zap.New(core), nil
}

func openReadStream(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openWriteStream(path string, def *os.File) (*os.File, func(), error) {
	if path == "" {
		return def, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
