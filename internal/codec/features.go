package codec

import (
	"errors"
	"fmt"
	"strings"
)

// FeatureDelimiter joins feature entries in their stored form.
const FeatureDelimiter = ",,"

// ErrInvalidFeature is returned for feature entries that cannot survive a
// join/split round trip.
var ErrInvalidFeature = errors.New("invalid feature")

// ValidateFeature reports whether a single entry can be stored. Entries must
// be non-empty, must not contain the delimiter and must not end with a comma
// (a trailing comma would merge with the following delimiter).
func ValidateFeature(f string) error {
	switch {
	case f == "":
		return fmt.Errorf("%w: empty entry", ErrInvalidFeature)
	case strings.Contains(f, FeatureDelimiter):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidFeature, f, FeatureDelimiter)
	case strings.HasSuffix(f, ","):
		return fmt.Errorf("%w: %q ends with a comma", ErrInvalidFeature, f)
	}
	return nil
}

// JoinFeatures encodes a feature list into its stored form.
func JoinFeatures(features []string) (string, error) {
	for _, f := range features {
		if err := ValidateFeature(f); err != nil {
			return "", err
		}
	}
	return strings.Join(features, FeatureDelimiter), nil
}

// SplitFeatures decodes the stored form. The empty string is the empty list.
func SplitFeatures(stored string) []string {
	if stored == "" {
		return []string{}
	}
	return strings.Split(stored, FeatureDelimiter)
}
