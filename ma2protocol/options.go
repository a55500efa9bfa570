package ma2protocol

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Options is an ordered set of command flags. The zero value is empty and
// ready to use. Options is immutable; each With method returns a copy.
type Options struct {
	entries []option
}

type option struct {
	name     string
	value    string
	hasValue bool
	err      error
}

// NewOptions returns options with the given presence flags set.
func NewOptions(names ...string) Options {
	var o Options
	for _, n := range names {
		o = o.With(n)
	}
	return o
}

// With sets a presence flag, rendered as /name.
func (o Options) With(name string) Options {
	return o.set(option{name: normalizeOption(name)})
}

// WithValue sets a valued flag, rendered as /name=value. Bools render as
// true/false; strings containing spaces are quoted.
func (o Options) WithValue(name string, value any) Options {
	opt := option{name: normalizeOption(name), hasValue: true}
	switch v := value.(type) {
	case bool:
		opt.value = strconv.FormatBool(v)
	case int:
		opt.value = strconv.Itoa(v)
	case float64:
		opt.value = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		if strings.ContainsAny(v, " \t\"") {
			opt.value, opt.err = QuoteLabel(v)
		} else {
			opt.value, opt.err = v, checkText(v)
		}
	default:
		opt.value = fmt.Sprint(v)
	}
	return o.set(opt)
}

// WithText sets a valued flag whose value is always quoted, such as
// /password="...".
func (o Options) WithText(name, text string) Options {
	opt := option{name: normalizeOption(name), hasValue: true}
	opt.value, opt.err = QuoteLabel(text)
	return o.set(opt)
}

// Len returns the number of flags set.
func (o Options) Len() int {
	return len(o.entries)
}

// Names returns flag names in insertion order.
func (o Options) Names() []string {
	names := make([]string, len(o.entries))
	for i, e := range o.entries {
		names[i] = e.name
	}
	return names
}

// set replaces an existing flag in place or appends a new one.
func (o Options) set(opt option) Options {
	entries := make([]option, 0, len(o.entries)+1)
	replaced := false
	for _, e := range o.entries {
		if e.name == opt.name {
			entries = append(entries, opt)
			replaced = true
			continue
		}
		entries = append(entries, e)
	}
	if !replaced {
		entries = append(entries, opt)
	}
	return Options{entries: entries}
}

func normalizeOption(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
}

// OptionSet lists the flags a command family accepts.
type OptionSet struct {
	family string
	names  map[string]struct{}
}

func newOptionSet(family string, names ...string) OptionSet {
	set := OptionSet{family: family, names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		set.names[n] = struct{}{}
	}
	return set
}

// Family returns the command family name.
func (s OptionSet) Family() string {
	return s.family
}

// Allows reports whether name is accepted by the family.
func (s OptionSet) Allows(name string) bool {
	_, ok := s.names[normalizeOption(name)]
	return ok
}

// Names returns the accepted flags sorted alphabetically.
func (s OptionSet) Names() []string {
	names := make([]string, 0, len(s.names))
	for n := range s.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Option families.
var (
	StoreOptions = newOptionSet("store",
		// flags
		"merge", "overwrite", "remove", "noconfirm", "global", "selective",
		"universal", "auto", "trackingshield", "embedded",
		// booleans
		"cueonly", "tracking", "keepactive", "presetfilter", "addnewcontent",
		"originalcontent", "effects", "values", "valuetimes",
		// valued
		"source", "useselection", "screen", "x", "y")

	DeleteOptions = newOptionSet("delete",
		"deletevalues", "cueonly", "noconfirm", "region", "element")

	CopyOptions = newOptionSet("copy",
		"overwrite", "merge", "status", "cueonly", "noconfirm")

	MoveOptions = newOptionSet("move")

	LabelOptions = newOptionSet("label")

	AssignOptions = newOptionSet("assign",
		"break", "multipatch", "reset", "x", "y", "noconfirm", "special",
		"cue_mode", "password")

	PlaybackOptions = newOptionSet("playback", "cue_mode", "userprofile")

	AtOptions = newOptionSet("at",
		"layer", "ignoreselection", "values", "valuetimes", "effects",
		"disablecolortransform", "prefercolorwheel", "prefermixcolor",
		"prefercolorboth", "status")

	AppearanceOptions = newOptionSet("appearance",
		"reset", "color", "r", "g", "b", "h", "s", "br")

	EditOptions = newOptionSet("edit", "noconfirm")

	CallOptions = newOptionSet("call", "status", "layer", "screen", "toggle_activation")

	ListOptions = newOptionSet("list", "filename")

	noOptions = newOptionSet("none")
)

// RenderOptions renders opts as " /a /b=v", or "" when opts is empty. It
// fails on the first flag the family does not accept.
func RenderOptions(opts Options, allowed OptionSet) (string, error) {
	if len(opts.entries) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, e := range opts.entries {
		if !allowed.Allows(e.name) {
			return "", newUnsupportedOptionError(e.name, allowed.family)
		}
		if e.err != nil {
			return "", e.err
		}
		b.WriteString(" /")
		b.WriteString(e.name)
		if e.hasValue {
			b.WriteByte('=')
			b.WriteString(e.value)
		}
	}
	return b.String(), nil
}
