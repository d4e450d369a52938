package state

// Options holds the shell's boolean `set -o`/short-flag option flags
// (spec.md §3.5).
type Options struct {
	flags map[string]bool
}

// Canonical long names for every flag spec.md §3.5 lists, plus their
// traditional single-letter spellings.
var shortFlagNames = map[byte]string{
	'a': "allexport",
	'e': "errexit",
	'f': "noglob",
	'h': "hashall",
	'm': "monitor",
	'n': "noexec",
	'u': "nounset",
	'v': "verbose",
	'x': "xtrace",
	'C': "noclobber",
}

func newOptions() *Options {
	return &Options{flags: map[string]bool{}}
}

// Set sets name's boolean flag.
func (o *Options) Set(name string, value bool) { o.flags[name] = value }

// SetShort sets a flag by its traditional `set -X` letter; ok is false
// for an unrecognized letter.
func (o *Options) SetShort(letter byte, value bool) bool {
	name, ok := shortFlagNames[letter]
	if !ok {
		return false
	}
	o.Set(name, value)
	return true
}

// Get reports name's current value (false if never set).
func (o *Options) Get(name string) bool { return o.flags[name] }

// Names returns every flag currently known (set true or false
// explicitly), for `set -o` reporting.
func (o *Options) Names() []string {
	names := make([]string, 0, len(o.flags))
	for n := range o.flags {
		names = append(names, n)
	}
	return names
}
