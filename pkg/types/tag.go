package types

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TagKey is the struct tag key that marks a field as a stat.
const TagKey = "stat"

// DefaultCategory is used when a stat tag names no category.
const DefaultCategory = "General"

// StatTag is the parsed value of a `stat:"..."` struct tag.
//
// The tag value is a list of options separated by ';':
//
//	Health float32 `stat:"display=Max Health;category=Combat;description=Hit points"`
//	Speed  float32 `stat:""`              // all defaults
//	Secret int     `stat:"hidden"`        // ShowInUI = false
//	Scratch int    `stat:"-"`             // not a stat
type StatTag struct {
	DisplayName string
	Category    string
	Description string
	ShowInUI    bool
}

// DefaultStatTag returns the tag values applied when the tag is empty.
func DefaultStatTag() StatTag {
	return StatTag{Category: DefaultCategory, ShowInUI: true}
}

// LookupStatTag extracts the stat tag from a struct tag. ok is false when the
// field carries no stat tag or is excluded with "-".
func LookupStatTag(tag reflect.StructTag) (st StatTag, ok bool, err error) {
	raw, present := tag.Lookup(TagKey)
	if !present || strings.TrimSpace(raw) == "-" {
		return StatTag{}, false, nil
	}
	st, err = ParseStatTag(raw)
	return st, true, err
}

// ParseStatTag parses a stat tag value. Unknown option keys and malformed
// booleans return an error wrapping ErrInvalidTag.
func ParseStatTag(raw string) (StatTag, error) {
	st := DefaultStatTag()
	for _, opt := range strings.Split(raw, ";") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		key, value, hasValue := strings.Cut(opt, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "display", "name":
			st.DisplayName = value
		case "category":
			if value != "" {
				st.Category = value
			}
		case "description", "desc":
			st.Description = value
		case "ui":
			if !hasValue {
				st.ShowInUI = true
				continue
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return StatTag{}, fmt.Errorf("%w: ui=%q", ErrInvalidTag, value)
			}
			st.ShowInUI = b
		case "hidden":
			st.ShowInUI = false
		default:
			return StatTag{}, fmt.Errorf("%w: unknown option %q", ErrInvalidTag, key)
		}
	}
	return st, nil
}

// String renders the tag back into its struct tag form.
func (st StatTag) String() string {
	var parts []string
	if st.DisplayName != "" {
		parts = append(parts, "display="+st.DisplayName)
	}
	if st.Category != "" && st.Category != DefaultCategory {
		parts = append(parts, "category="+st.Category)
	}
	if st.Description != "" {
		parts = append(parts, "description="+st.Description)
	}
	if !st.ShowInUI {
		parts = append(parts, "hidden")
	}
	return strings.Join(parts, ";")
}

// DisplayNameFromField derives a human-readable name from a Go field name by
// splitting on case boundaries, digits and underscores: "MaxHealth" becomes
// "Max Health", "HPRegen" becomes "HP Regen".
func DisplayNameFromField(name string) string {
	runes := []rune(name)
	var words []string
	start := 0
	flush := func(end int) {
		if end > start {
			words = append(words, string(runes[start:end]))
		}
		start = end
	}
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '_' {
			flush(i)
			start = i + 1
			continue
		}
		if i == start {
			continue
		}
		prev := runes[i-1]
		switch {
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			flush(i)
		case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			flush(i)
		case unicode.IsDigit(r) && !unicode.IsDigit(prev):
			flush(i)
		case !unicode.IsDigit(r) && unicode.IsDigit(prev):
			flush(i)
		}
	}
	flush(len(runes))
	return cases.Title(language.English, cases.NoLower).String(strings.Join(words, " "))
}

// FoldCategory normalizes a category name for case-insensitive comparison.
func FoldCategory(category string) string {
	return cases.Fold().String(strings.TrimSpace(category))
}
