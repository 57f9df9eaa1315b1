package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseBool accepts the spellings people type for yes and no.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "t", "y", "1":
		return true, nil
	case "no", "false", "f", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("boolean value expected, got %q", s)
}

// boolValue is a flag taking an explicit yes/no argument.
type boolValue struct {
	value bool
}

func newBoolValue(def bool) *boolValue {
	return &boolValue{value: def}
}

func (b *boolValue) String() string {
	return strconv.FormatBool(b.value)
}

func (b *boolValue) Set(s string) error {
	v, err := parseBool(s)
	if err != nil {
		return err
	}
	b.value = v
	return nil
}

// Type is the usage placeholder; the flag always takes an argument.
func (b *boolValue) Type() string {
	return "yes|no"
}

// parseHSV reads "h,s,v" with every component in 0..255.
func parseHSV(s string) ([3]int, error) {
	var hsv [3]int

	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return hsv, fmt.Errorf("expected h,s,v, got %q", s)
	}

	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return hsv, fmt.Errorf("invalid component %q in %q", part, s)
		}
		if v < 0 || v > 255 {
			return hsv, fmt.Errorf("component %d out of range 0..255 in %q", v, s)
		}
		hsv[i] = v
	}

	return hsv, nil
}
