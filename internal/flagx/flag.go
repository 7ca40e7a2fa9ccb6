// Package flagx lets several packages share os.Args without stepping on each
// other's flag sets.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// ConfigEnv names the environment variable consulted by ConfigPath when no
// config flag is given.
const ConfigEnv = "GOPHAUTH_CONFIG"

// name strips leading dashes so "-c" and "--c" compare equal.
func name(arg string) string {
	return strings.TrimLeft(arg, "-")
}

// FilterArgs keeps only the allowed flags from args, together with the value
// that follows a flag given in its separate form ("-c conf.json"). The
// combined form ("--config=conf.json") is kept as a single argument.
// Single and double dash spellings are equivalent. Everything after a bare
// "--" is ignored.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[name(f)] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		flagName, _, hasValue := strings.Cut(arg, "=")
		if _, ok := allowed[name(flagName)]; !ok {
			continue
		}

		filtered = append(filtered, arg)
		if hasValue {
			continue
		}

		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigPath returns the JSON config file named by -c or -config in args.
// When neither flag is present the ConfigEnv variable is used. The last
// occurrence of a flag wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	return path
}
