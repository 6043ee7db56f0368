// Package cli defines the command line interface: the long-running bot
// daemon and the chat export importer.
package cli

import (
	"context"
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// globalOptions are flags shared by every subcommand.
type globalOptions struct {
	Config string `long:"config" description:"Path to the config file" value-name:"FILE"`
}

// commands holds references to all subcommand structs.
type commands struct {
	Run    *RunCommand
	Import *ImportCommand
}

// buildParser constructs the go-flags parser with all subcommands
// registered. ctx carries the process shutdown signal into the commands.
func buildParser(ctx context.Context, version string) (*goflags.Parser, *commands) {
	opts := &globalOptions{}
	parser := goflags.NewParser(opts, goflags.Default)
	parser.Name = "groupstats"
	parser.LongDescription = "Group chat statistics bot: logs messages and answers /stats queries."

	cmds := &commands{
		Run:    &RunCommand{ctx: ctx, opts: opts},
		Import: &ImportCommand{ctx: ctx, opts: opts},
	}

	parser.AddCommand("run", "Start the bot", "Start the message logger and statistics bot.", cmds.Run)
	parser.AddCommand("import", "Import a chat export", "Import a Telegram Desktop JSON chat export into the message log.", cmds.Import)

	return parser, cmds
}

// Run parses os.Args and executes the matched subcommand.
func Run(ctx context.Context, version string) error {
	return RunWithArgs(ctx, version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the
// matched subcommand.
func RunWithArgs(ctx context.Context, version string, args []string) error {
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("groupstats %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _ := buildParser(ctx, version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
