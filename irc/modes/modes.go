// Copyright (c) 2026 boardirc contributors
// released under the MIT license

// Package modes holds the channel and user mode tables. Each category is a
// static letter -> mode lookup table; there is no per-letter behavior beyond
// what the tables describe.
package modes

import (
	"sort"
	"strings"
)

// ModeOp is an operation performed with modes
type ModeOp rune

const (
	// Add is used when adding the given mode.
	Add ModeOp = '+'
	// Remove is used when taking away the given mode.
	Remove ModeOp = '-'
)

// ChannelMode is a single channel mode.
type ChannelMode uint8

// Channel Modes
const (
	ChannelOperator ChannelMode = iota // o, arg
	Private                            // p
	Secret                             // s
	InviteOnly                         // i
	OpOnlyTopic                        // t
	NoOutside                          // n
	Moderated                          // m
	UserLimit                          // l, arg on add
	BanMask                            // b, arg
	Voice                              // v, arg
	Key                                // k, arg
)

// UserMode is a single user mode.
type UserMode uint8

// User Modes
const (
	Invisible    UserMode = iota // i
	ServerNotice                 // s
	WallOps                      // w
	Operator                     // o
	Away                         // a
	Restricted                   // r
	MaskedHost                   // x
)

type argPolicy uint8

const (
	argNever argPolicy = iota
	argAlways
	argOnAdd
)

var (
	channelModeLetters = map[rune]ChannelMode{
		'o': ChannelOperator,
		'p': Private,
		's': Secret,
		'i': InviteOnly,
		't': OpOnlyTopic,
		'n': NoOutside,
		'm': Moderated,
		'l': UserLimit,
		'b': BanMask,
		'v': Voice,
		'k': Key,
	}
	channelModeRunes = [...]rune{
		ChannelOperator: 'o',
		Private:         'p',
		Secret:          's',
		InviteOnly:      'i',
		OpOnlyTopic:     't',
		NoOutside:       'n',
		Moderated:       'm',
		UserLimit:       'l',
		BanMask:         'b',
		Voice:           'v',
		Key:             'k',
	}
	channelModeArgs = map[ChannelMode]argPolicy{
		ChannelOperator: argAlways,
		BanMask:         argAlways,
		Voice:           argAlways,
		Key:             argAlways,
		UserLimit:       argOnAdd,
	}

	userModeLetters = map[rune]UserMode{
		'i': Invisible,
		's': ServerNotice,
		'w': WallOps,
		'o': Operator,
		'a': Away,
		'r': Restricted,
		'x': MaskedHost,
	}
	userModeRunes = [...]rune{
		Invisible:    'i',
		ServerNotice: 's',
		WallOps:      'w',
		Operator:     'o',
		Away:         'a',
		Restricted:   'r',
		MaskedHost:   'x',
	}
)

// LookupChannelMode returns the channel mode for a mode letter.
func LookupChannelMode(letter rune) (mode ChannelMode, ok bool) {
	mode, ok = channelModeLetters[letter]
	return
}

// LookupUserMode returns the user mode for a mode letter.
func LookupUserMode(letter rune) (mode UserMode, ok bool) {
	mode, ok = userModeLetters[letter]
	return
}

func (mode ChannelMode) String() string {
	return string(channelModeRunes[mode])
}

func (mode UserMode) String() string {
	return string(userModeRunes[mode])
}

// ChannelModeChange is a single channel mode changing
type ChannelModeChange struct {
	Mode ChannelMode
	Op   ModeOp
	Arg  string
}

// UserModeChange is a single user mode changing
type UserModeChange struct {
	Mode UserMode
	Op   ModeOp
}

// ParseChannelModeChanges parses a mode string such as "+ntl-k" together with the
// arguments that follow it. Letters without a table entry are returned in unknown.
// A mode that needs an argument but has none left is dropped.
func ParseChannelModeChanges(modestring string, params ...string) (changes []ChannelModeChange, unknown map[rune]bool) {
	op := Add
	for _, letter := range modestring {
		switch letter {
		case '+':
			op = Add
			continue
		case '-':
			op = Remove
			continue
		}

		mode, ok := channelModeLetters[letter]
		if !ok {
			if unknown == nil {
				unknown = make(map[rune]bool)
			}
			unknown[letter] = true
			continue
		}

		change := ChannelModeChange{Mode: mode, Op: op}
		policy := channelModeArgs[mode]
		if policy == argAlways || (policy == argOnAdd && op == Add) {
			if len(params) == 0 {
				continue
			}
			change.Arg, params = params[0], params[1:]
		}
		changes = append(changes, change)
	}
	return
}

// ParseUserModeChanges parses a user mode string such as "+iw-x".
func ParseUserModeChanges(modestring string) (changes []UserModeChange, unknown map[rune]bool) {
	op := Add
	for _, letter := range modestring {
		switch letter {
		case '+':
			op = Add
			continue
		case '-':
			op = Remove
			continue
		}

		mode, ok := userModeLetters[letter]
		if !ok {
			if unknown == nil {
				unknown = make(map[rune]bool)
			}
			unknown[letter] = true
			continue
		}
		changes = append(changes, UserModeChange{Mode: mode, Op: op})
	}
	return
}

// FormatChannelModeChanges renders changes as a mode string plus the
// arguments that go with it, e.g. "+lk-t" with ["10", "sekrit"].
func FormatChannelModeChanges(changes []ChannelModeChange) (modestring string, args []string) {
	var buf strings.Builder
	var op ModeOp
	for _, change := range changes {
		if change.Op != op {
			op = change.Op
			buf.WriteRune(rune(op))
		}
		buf.WriteString(change.Mode.String())
		if change.Arg != "" {
			args = append(args, change.Arg)
		}
	}
	return buf.String(), args
}

// ChannelModeSet is a set of channel modes. The zero value is empty,
// and it is safe to copy.
type ChannelModeSet uint16

// Has returns whether mode is set.
func (set ChannelModeSet) Has(mode ChannelMode) bool {
	return set&(1<<mode) != 0
}

// SetMode sets or unsets mode, returning whether anything changed.
func (set *ChannelModeSet) SetMode(mode ChannelMode, on bool) (applied bool) {
	if set.Has(mode) == on {
		return false
	}
	if on {
		*set |= 1 << mode
	} else {
		*set &^= 1 << mode
	}
	return true
}

// String returns the set as a mode string, e.g. "+nt". The empty set is "+".
func (set ChannelModeSet) String() string {
	var letters []string
	for mode, letter := range channelModeRunes {
		if set.Has(ChannelMode(mode)) {
			letters = append(letters, string(letter))
		}
	}
	sort.Strings(letters)
	return "+" + strings.Join(letters, "")
}
