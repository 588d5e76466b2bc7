// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

// Flags packs tri-state booleans into one word. Each flag owns two
// adjacent bits starting at its offset: a present bit, then a value
// bit. The value bit is meaningful only while the present bit is set.
type Flags uint32

// Flag is the bit offset of one tri-state flag. Offsets are part of
// the stored format.
type Flag uint8

const (
	FlagDefaultBranch Flag = 0
	FlagComposite     Flag = 2
	FlagFakeStub      Flag = 4
	FlagFailedToStart Flag = 6
)

// Tri is a tri-state boolean.
type Tri uint8

const (
	Unset Tri = iota
	False
	True
)

// TriOf converts an optional boolean.
func TriOf(value *bool) Tri {
	switch {
	case value == nil:
		return Unset
	case *value:
		return True
	default:
		return False
	}
}

// TriBool converts a plain boolean.
func TriBool(value bool) Tri {
	if value {
		return True
	}
	return False
}

// Ptr converts back to an optional boolean; Unset is nil.
func (t Tri) Ptr() *bool {
	if t == Unset {
		return nil
	}
	value := t == True
	return &value
}

// IsTrue reports t == True; Unset counts as false.
func (t Tri) IsTrue() bool { return t == True }

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unset"
	}
}

// Set stores value in flag's slot. Both bits are cleared first, so
// setting Unset after True leaves no value bit behind.
func (f *Flags) Set(flag Flag, value Tri) {
	*f &^= 0b11 << flag
	switch value {
	case True:
		*f |= 0b11 << flag
	case False:
		*f |= 0b01 << flag
	}
}

// Get reads flag's slot.
func (f Flags) Get(flag Flag) Tri {
	if f&(1<<flag) == 0 {
		return Unset
	}
	if f&(1<<(flag+1)) == 0 {
		return False
	}
	return True
}
