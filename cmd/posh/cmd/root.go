package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdshell/posh/internal/builtin"
	"github.com/cmdshell/posh/internal/expand"
	"github.com/cmdshell/posh/internal/input"
	"github.com/cmdshell/posh/internal/interp"
	"github.com/cmdshell/posh/internal/repl"
	"github.com/cmdshell/posh/internal/source"
	"github.com/cmdshell/posh/internal/state"
	"github.com/cmdshell/posh/internal/system"
	"github.com/cmdshell/posh/internal/trap"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Exit statuses the shell front-end itself produces (spec.md §6.1).
const (
	exitSyntaxError = 2
	exitNoExec      = 126
	exitNotFound    = 127
)

var (
	commandString string
	readStdin     bool
	forceLogin    bool
	forceInteract bool

	// The standard `set` flags accepted at invocation time (spec.md
	// §6.1), keyed by their canonical long option name.
	startupFlags = map[string]*bool{
		"allexport": new(bool),
		"errexit":   new(bool),
		"noglob":    new(bool),
		"hashall":   new(bool),
		"monitor":   new(bool),
		"noexec":    new(bool),
		"nounset":   new(bool),
		"verbose":   new(bool),
		"xtrace":    new(bool),
		"noclobber": new(bool),
	}

	exitStatus int
)

var rootCmd = &cobra.Command{
	Use:   "posh [options] [command_file [argument...]]",
	Short: "POSIX-conformant command language interpreter",
	Long: `posh is a POSIX-conformant shell: it reads command scripts,
parses them into a syntax tree, expands words, and executes the
resulting commands.

Input is taken from -c, from a command file operand, or from standard
input when neither is given.`,
	Version:            Version,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: false,
	SilenceUsage:       true,
	SilenceErrors:      true,
	RunE: func(_ *cobra.Command, args []string) error {
		exitStatus = runShell(args)
		return nil
	},
}

// Execute runs the root command and returns the process exit status.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "posh: %v\n", err)
		return exitSyntaxError
	}
	return exitStatus
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	f := rootCmd.Flags()
	f.SetInterspersed(false)

	f.StringVarP(&commandString, "command", "c", "", "execute the given command string")
	f.BoolVarP(&readStdin, "stdin", "s", false, "read commands from standard input even with operands present")
	f.BoolVarP(&forceInteract, "interactive", "i", false, "force interactive mode")
	f.BoolVarP(&forceLogin, "login", "l", false, "behave as a login shell")

	f.BoolVarP(startupFlags["allexport"], "allexport", "a", false, "export every assigned variable")
	f.BoolVarP(startupFlags["errexit"], "errexit", "e", false, "exit on command failure")
	f.BoolVarP(startupFlags["noglob"], "noglob", "f", false, "disable pathname expansion")
	f.BoolVar(startupFlags["hashall"], "hashall", false, "remember utility locations")
	f.BoolVarP(startupFlags["monitor"], "monitor", "m", false, "enable job control")
	f.BoolVarP(startupFlags["noexec"], "noexec", "n", false, "read commands without executing them")
	f.BoolVarP(startupFlags["nounset"], "nounset", "u", false, "error on expansion of unset parameters")
	f.BoolVarP(startupFlags["verbose"], "verbose", "v", false, "echo input lines as they are read")
	f.BoolVarP(startupFlags["xtrace"], "xtrace", "x", false, "trace commands before execution")
	f.BoolVarP(startupFlags["noclobber"], "noclobber", "C", false, "refuse > redirections onto existing files")
}

// runShell wires system + state + builtins + expander + executor +
// read-eval loop together, the way the teacher's run command wires
// lexer+parser+semantic+interp, and returns the shell's exit status.
func runShell(operands []string) int {
	sys := system.NewReal()

	producer, origin, shellName, args, status := resolveInput(sys, operands)
	if producer == nil {
		return status
	}

	env := state.New(shellName, args)
	env.SetPid(sys.Getpid())
	for name, set := range startupFlags {
		if *set {
			env.Options.Set(name, true)
		}
	}
	if forceLogin {
		env.Options.Set("login", true)
	}
	interactive := forceInteract
	if !interactive && commandString == "" && origin.Kind == source.OriginStdin {
		interactive = sys.Isatty(0) && sys.Isatty(2)
	}
	if interactive {
		env.Options.Set("interactive", true)
	}
	if origin.Kind == source.OriginStdin {
		env.Options.Set("stdin", true)
	}

	builtins := builtin.New()
	ex := interp.New(env, sys, builtins, nil)
	ex.Expander = expand.New(env, sys, ex.RunCommandSubstitution, env.ExitStatusPtr())

	loop := repl.New(ex, trap.New(ex, sys), producer, origin)
	return loop.Run()
}

// resolveInput decides where commands come from: -c, a command-file
// operand, or standard input, and splits the remaining operands into
// $0 and the positional parameters (spec.md §6.1). A nil producer
// means startup failed with the returned status.
func resolveInput(sys system.System, operands []string) (input.Producer, source.Origin, string, []string, int) {
	switch {
	case commandString != "":
		shellName := "posh"
		args := operands
		if len(operands) > 0 {
			shellName = operands[0]
			args = operands[1:]
		}
		return input.String(commandString), source.Origin{Kind: source.OriginEvalArgument}, shellName, args, 0
	case !readStdin && len(operands) > 0:
		path := operands[0]
		file, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "posh: %s: %v\n", path, err)
			return nil, source.Origin{}, "", nil, openErrorStatus(err)
		}
		// The file handle stays open for the shell's lifetime; the
		// process exit releases it.
		return input.Reader(file), source.Origin{Kind: source.OriginScriptFile, Name: path}, path, operands[1:], 0
	default:
		return input.Reader(os.Stdin), source.Origin{Kind: source.OriginStdin}, "posh", operands, 0
	}
}

// openErrorStatus maps a script-open failure to the POSIX front-end
// exit codes: 127 when the file cannot exist, 126 otherwise.
func openErrorStatus(err error) int {
	msg := err.Error()
	if os.IsNotExist(err) || strings.Contains(msg, "not a directory") || strings.Contains(msg, "illegal byte sequence") {
		return exitNotFound
	}
	return exitNoExec
}
