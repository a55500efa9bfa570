package ma2protocol

import (
	"math"
	"strconv"
	"strings"
)

// ObjectKind identifies a console object type.
type ObjectKind int

const (
	KindFixture ObjectKind = iota
	KindChannel
	KindGroup
	KindPreset
	KindCue
	KindSequence
	KindMacro
	KindExecutor
	KindLayout
	KindDMX

	// Less common pools
	KindPresetType
	KindDmxUniverse
	KindEffect
	KindTimecode
	KindTimer
	KindWorld
	KindView
	KindPage
	KindAttribute
	KindFeature
)

var kindKeywords = [...]string{
	KindFixture:     "Fixture",
	KindChannel:     "Channel",
	KindGroup:       "Group",
	KindPreset:      "Preset",
	KindCue:         "Cue",
	KindSequence:    "Sequence",
	KindMacro:       "Macro",
	KindExecutor:    "Executor",
	KindLayout:      "Layout",
	KindDMX:         "DMX",
	KindPresetType:  "PresetType",
	KindDmxUniverse: "DmxUniverse",
	KindEffect:      "Effect",
	KindTimecode:    "Timecode",
	KindTimer:       "Timer",
	KindWorld:       "World",
	KindView:        "View",
	KindPage:        "Page",
	KindAttribute:   "Attribute",
	KindFeature:     "Feature",
}

// String returns the object keyword as the console spells it.
func (k ObjectKind) String() string {
	if k < 0 || int(k) >= len(kindKeywords) {
		return "ObjectKind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindKeywords[k]
}

// LookupKind resolves an object keyword, case-insensitively.
func LookupKind(word string) (ObjectKind, bool) {
	for k, kw := range kindKeywords {
		if strings.EqualFold(kw, word) {
			return ObjectKind(k), true
		}
	}
	return 0, false
}

// presetTypes maps preset type keywords to their pool numbers. The codes
// follow the PresetType pool order of the console (Dimmer 1 through Video
// 9), which differs from the older table that numbered color 2 and beam 4.
var presetTypes = map[string]int{
	"dimmer":   1,
	"position": 2,
	"gobo":     3,
	"color":    4,
	"beam":     5,
	"focus":    6,
	"control":  7,
	"shapers":  8,
	"video":    9,
}

// PresetTypeCode resolves a preset type keyword such as "color".
func PresetTypeCode(name string) (int, bool) {
	code, ok := presetTypes[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// ID is an object identifier: a primary number and an optional positive
// sub-address. Cue IDs may instead carry a decimal fraction.
type ID struct {
	Number int
	Sub    int  // 0 when absent
	frac   bool // Sub holds thousandths of a cue number
}

// SubID returns an ID of the form number.sub.
func SubID(number, sub int) ID {
	return ID{Number: number, Sub: sub}
}

func (id ID) validate() error {
	if id.Number < 0 {
		return newInvalidIdentifierError(id.String(), "must be non-negative")
	}
	if id.Sub < 0 {
		return newInvalidIdentifierError(id.String(), "sub-address must be positive")
	}
	return nil
}

// String renders number or number.sub.
func (id ID) String() string {
	if id.Sub == 0 {
		return strconv.Itoa(id.Number)
	}
	if id.frac {
		s := strconv.Itoa(id.Number) + "." + leftPad(strconv.Itoa(id.Sub), 3)
		return strings.TrimRight(s, "0")
	}
	return strconv.Itoa(id.Number) + "." + strconv.Itoa(id.Sub)
}

func leftPad(s string, n int) string {
	for len(s) < n {
		s = "0" + s
	}
	return s
}

// less compares numerically; a missing sub-address sorts as zero. A cue
// decimal and a plain sub-address are compared by their decimal value, so
// 3.25 sorts below 3.5.
func (id ID) less(other ID) bool {
	if id.frac != other.frac && (id.Sub != 0 || other.Sub != 0) {
		a, _ := strconv.ParseFloat(id.String(), 64)
		b, _ := strconv.ParseFloat(other.String(), 64)
		return a < b
	}
	if id.Number != other.Number {
		return id.Number < other.Number
	}
	return id.Sub < other.Sub
}

// ObjectRef references one console object or a Thru span of them. Build one
// with the kind constructors (Fixture, Group, Cue, ...) and refine it with
// Sub, Thru, In and Part. Invalid input is reported by Render.
type ObjectRef struct {
	kind    ObjectKind
	start   ID
	end     *ID
	all     bool
	bare    bool
	typeKey string
	name    string // quoted in place of an identifier
	scope   []ObjectRef
	part    int
	err     error
}

func newRef(kind ObjectKind, number int) ObjectRef {
	return ObjectRef{kind: kind, start: ID{Number: number}}
}

// Fixture references a fixture by its fixture ID.
func Fixture(id int) ObjectRef { return newRef(KindFixture, id) }

// Channel references a channel; use Sub for a sub-channel.
func Channel(id int) ObjectRef { return newRef(KindChannel, id) }

// Group references a group pool object.
func Group(id int) ObjectRef { return newRef(KindGroup, id) }

// Cue references a whole-numbered cue.
func Cue(id int) ObjectRef { return newRef(KindCue, id) }

// CueDecimal references a cue such as 3.5. Cue numbers run from 0.001 to
// 9999.999 with three decimal places.
func CueDecimal(number float64) ObjectRef {
	id, err := cueNumber(number)
	return ObjectRef{kind: KindCue, start: id, err: err}
}

func cueNumber(number float64) (ID, error) {
	if number < 0.001 || number > 9999.999 || math.IsNaN(number) {
		return ID{}, newInvalidIdentifierError(strconv.FormatFloat(number, 'f', -1, 64),
			"cue numbers run from 0.001 to 9999.999")
	}
	thousandths := int(math.Round(number * 1000))
	return ID{Number: thousandths / 1000, Sub: thousandths % 1000, frac: true}, nil
}

// Sequence references a sequence pool object.
func Sequence(id int) ObjectRef { return newRef(KindSequence, id) }

// Macro references a macro pool object.
func Macro(id int) ObjectRef { return newRef(KindMacro, id) }

// Executor references an executor on the current page.
func Executor(id int) ObjectRef { return newRef(KindExecutor, id) }

// ExecutorOnPage references an executor as page.executor.
func ExecutorOnPage(page, id int) ObjectRef {
	ref := ObjectRef{kind: KindExecutor, start: ID{Number: page, Sub: id}}
	if id <= 0 {
		ref.err = newInvalidIdentifierError(strconv.Itoa(id), "executor number must be positive")
	}
	return ref
}

// Layout references a layout pool object.
func Layout(id int) ObjectRef { return newRef(KindLayout, id) }

// DMX references an absolute DMX address.
func DMX(address int) ObjectRef { return newRef(KindDMX, address) }

// DMXInUniverse references a DMX address as universe.address.
func DMXInUniverse(universe, address int) ObjectRef {
	ref := ObjectRef{kind: KindDMX, start: ID{Number: universe, Sub: address}}
	if address < 1 || address > 512 {
		ref.err = newInvalidIdentifierError(ref.start.String(), "DMX address must be 1-512")
	}
	return ref
}

// DmxUniverse references a DMX universe.
func DmxUniverse(id int) ObjectRef { return newRef(KindDmxUniverse, id) }

// Preset references a preset by type keyword and number, e.g.
// Preset("color", 5) renders "Preset 4.5".
func Preset(typeName string, id int) ObjectRef {
	return ObjectRef{kind: KindPreset, start: ID{Sub: id}, typeKey: typeName}
}

// PresetCode references a preset by numeric type and number.
func PresetCode(presetType, id int) ObjectRef {
	return ObjectRef{kind: KindPreset, start: ID{Number: presetType, Sub: id}}
}

// PresetType references a preset type by keyword.
func PresetType(typeName string) ObjectRef {
	return ObjectRef{kind: KindPresetType, typeKey: typeName}
}

// Effect references an effect pool object.
func Effect(id int) ObjectRef { return newRef(KindEffect, id) }

// Timecode references a timecode show.
func Timecode(id int) ObjectRef { return newRef(KindTimecode, id) }

// Timer references a timer pool object.
func Timer(id int) ObjectRef { return newRef(KindTimer, id) }

// World references a world pool object.
func World(id int) ObjectRef { return newRef(KindWorld, id) }

// View references a view pool object.
func View(id int) ObjectRef { return newRef(KindView, id) }

// Page references an executor page.
func Page(id int) ObjectRef { return newRef(KindPage, id) }

// Attribute references a fixture attribute by number.
func Attribute(id int) ObjectRef { return newRef(KindAttribute, id) }

// AttributeNamed references a fixture attribute by its library name, as in
// `Attribute "Pan"`. Names stay stable when fixtures are added; numbers
// do not.
func AttributeNamed(name string) ObjectRef {
	ref := ObjectRef{kind: KindAttribute, name: name}
	if strings.TrimSpace(name) == "" {
		ref.err = newMissingArgumentError("attribute name is empty")
	}
	return ref
}

// Feature references a feature, the container of related attributes. Use
// Sub to address one attribute in it: Feature(3).Sub(1) renders
// "Feature 3.1".
func Feature(id int) ObjectRef { return newRef(KindFeature, id) }

// Ref references an object of any kind by number.
func Ref(kind ObjectKind, id int) ObjectRef { return newRef(kind, id) }

// All references every object of a kind, rendered "<Keyword> Thru".
func All(kind ObjectKind) ObjectRef {
	return ObjectRef{kind: kind, all: true}
}

// Pool references a kind without an identifier, as in "List Group".
func Pool(kind ObjectKind) ObjectRef {
	return ObjectRef{kind: kind, bare: true}
}

// Kind returns the object kind.
func (r ObjectRef) Kind() ObjectKind {
	return r.kind
}

// Sub returns a copy addressed as primary.n.
func (r ObjectRef) Sub(n int) ObjectRef {
	r.start.Sub = n
	r.start.frac = false
	if n <= 0 && r.err == nil {
		r.err = newInvalidIdentifierError(strconv.Itoa(n), "sub-address must be positive")
	}
	return r
}

// Thru returns a copy spanning to end. On a sub-addressed reference end is
// the last sub-address under the same primary, so Channel(11).Sub(1).Thru(5)
// renders "Channel 11.1 Thru 11.5".
func (r ObjectRef) Thru(end int) ObjectRef {
	id := ID{Number: end}
	if (r.start.Sub != 0 && !r.start.frac) || r.typeKey != "" {
		id = ID{Number: r.start.Number, Sub: end}
	}
	r.end = &id
	return r
}

// ThruDecimal returns a copy spanning to a decimal cue number, so
// CueDecimal(1.5).ThruDecimal(3.5) renders "Cue 1.5 Thru 3.5".
func (r ObjectRef) ThruDecimal(end float64) ObjectRef {
	id, err := cueNumber(end)
	if err != nil && r.err == nil {
		r.err = err
	}
	r.end = &id
	return r
}

// ThruID returns a copy spanning to an explicit end identifier.
func (r ObjectRef) ThruID(end ID) ObjectRef {
	r.end = &end
	return r
}

// In returns a copy qualified by a parent object, as in
// Cue(5).In(Sequence(1)) rendering "Cue 5 Sequence 1".
func (r ObjectRef) In(parent ObjectRef) ObjectRef {
	scope := make([]ObjectRef, 0, len(r.scope)+1)
	scope = append(scope, r.scope...)
	r.scope = append(scope, parent)
	return r
}

// Part returns a copy addressing a cue part.
func (r ObjectRef) Part(n int) ObjectRef {
	r.part = n
	if n <= 0 && r.err == nil {
		r.err = newInvalidIdentifierError(strconv.Itoa(n), "cue part must be positive")
	}
	return r
}

// resolved returns start and end with any preset type keyword applied.
func (r ObjectRef) resolved() (ID, *ID, error) {
	start, end := r.start, r.end
	if r.typeKey == "" {
		return start, end, nil
	}
	code, ok := PresetTypeCode(r.typeKey)
	if !ok {
		return start, end, newUnknownTypeError(r.typeKey)
	}
	if r.kind == KindPresetType {
		start.Number = code
		return start, end, nil
	}
	start.Number = code
	if end != nil && end.Number == 0 {
		e := *end
		e.Number = code
		end = &e
	}
	return start, end, nil
}

// Render returns "<Keyword> <id>[ Thru <id>]" plus any part and scope.
func (r ObjectRef) Render() (string, error) {
	if r.err != nil {
		return "", r.err
	}
	if r.bare {
		return r.kind.String(), nil
	}
	if r.all {
		return r.kind.String() + " " + KeywordThru, nil
	}
	body, err := r.renderIDs()
	if err != nil {
		return "", err
	}
	s := r.kind.String() + " " + body
	if r.part > 0 {
		s += " Part " + strconv.Itoa(r.part)
	}
	for _, parent := range r.scope {
		p, err := parent.Render()
		if err != nil {
			return "", err
		}
		s += " " + p
	}
	return s, nil
}

// renderIDs renders the identifier part without the keyword.
func (r ObjectRef) renderIDs() (string, error) {
	if r.name != "" {
		if r.end != nil {
			return "", newInvalidRangeError(r.name, "a named reference cannot span a range")
		}
		return QuoteLabel(r.name)
	}
	start, end, err := r.resolved()
	if err != nil {
		return "", err
	}
	if err := start.validate(); err != nil {
		return "", err
	}
	if r.kind == KindPreset && start.Sub == 0 {
		return "", newInvalidIdentifierError(start.String(), "preset needs a number within its type")
	}
	if end == nil {
		return start.String(), nil
	}
	if err := end.validate(); err != nil {
		return "", err
	}
	if end.less(start) {
		return "", newInvalidRangeError(start.String()+" "+KeywordThru+" "+end.String(),
			"ranges are never descending")
	}
	return start.String() + " " + KeywordThru + " " + end.String(), nil
}

// count returns the number of objects referenced, when it can be known.
func (r ObjectRef) count() (int, bool) {
	if r.all || r.bare {
		return 0, false
	}
	if r.end == nil {
		return 1, true
	}
	start, end, err := r.resolved()
	if err != nil {
		return 0, false
	}
	switch {
	case start.Sub == 0 && end.Sub == 0:
		return end.Number - start.Number + 1, true
	case start.Number == end.Number && !start.frac:
		return end.Sub - start.Sub + 1, true
	}
	return 0, false
}

func (ObjectRef) isTarget() {}

// Target is anything that can follow a function keyword: a single
// ObjectRef or an ObjectList.
type Target interface {
	Render() (string, error)
	count() (int, bool)
	isTarget()
}

// ObjectList joins references with "+".
type ObjectList struct {
	refs []ObjectRef
}

// List returns an ObjectList of refs. Consecutive references of the same
// kind share one keyword: List(Fixture(1), Fixture(5)) renders
// "Fixture 1 + 5".
func List(refs ...ObjectRef) ObjectList {
	return ObjectList{refs: append([]ObjectRef(nil), refs...)}
}

// Render implements Target.
func (l ObjectList) Render() (string, error) {
	if len(l.refs) == 0 {
		return "", newMissingArgumentError("empty object list")
	}
	parts := make([]string, 0, len(l.refs))
	for i, ref := range l.refs {
		if i > 0 && shareKeyword(l.refs[i-1], ref) {
			if ref.err != nil {
				return "", ref.err
			}
			body, err := ref.renderIDs()
			if err != nil {
				return "", err
			}
			parts = append(parts, body)
			continue
		}
		s, err := ref.Render()
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "+KeywordPlus+" "), nil
}

func shareKeyword(prev, cur ObjectRef) bool {
	plain := func(r ObjectRef) bool {
		return !r.all && !r.bare && r.part == 0 && len(r.scope) == 0
	}
	return prev.kind == cur.kind && plain(prev) && plain(cur)
}

func (l ObjectList) count() (int, bool) {
	total := 0
	for _, ref := range l.refs {
		n, ok := ref.count()
		if !ok {
			return 0, false
		}
		total += n
	}
	return total, true
}

func (ObjectList) isTarget() {}
