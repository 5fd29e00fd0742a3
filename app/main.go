package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	log "github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
)

type options struct {
	Server  ServerCmd `command:"server" description:"serve the site with per-visitor theme preferences"`
	Build   BuildCmd  `command:"build" description:"build the static site into the output directory"`
	Version bool      `long:"version" description:"show version and exit"`
}

var revision = "unknown"

// errNoCommand is returned when neither a command nor --version is given.
var errNoCommand = errors.New("no command given")

func main() {
	fmt.Printf("folio %s\n", revision)

	var opts options
	p := newParser(&opts)
	if _, err := p.Parse(); err != nil {
		var flagsErr *flags.Error
		if (errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp) || errors.Is(err, errNoCommand) {
			p.WriteHelp(os.Stderr)
			os.Exit(2)
		}
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

// newParser makes the command parser. Commands run from the parser's command handler,
// --version alone skips them.
func newParser(opts *options) *flags.Parser {
	p := flags.NewParser(opts, flags.PassDoubleDash|flags.HelpFlag)
	p.SubcommandsOptional = true
	p.CommandHandler = func(cmd flags.Commander, args []string) error {
		if opts.Version {
			return nil
		}
		if cmd == nil {
			return errNoCommand
		}
		return cmd.Execute(args)
	}
	return p
}

func setupLogs(dbg bool) io.Writer {
	log.Setup(log.Msec)
	if dbg {
		log.Setup(log.Debug, log.CallerFunc, log.CallerPkg, log.CallerFile)
	}
	return os.Stdout
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			switch sig {
			case syscall.SIGQUIT:
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
			case syscall.SIGTERM, syscall.SIGINT:
				cancel()
			}
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
