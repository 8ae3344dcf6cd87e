package models

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Unknown is the sentinel written in place of a value that could not be retrieved.
const Unknown = "Unknown"

// Feature is an audio feature value that may be unknown.
//
// It marshals to a JSON number, or to the string "Unknown" when the value is missing.
type Feature struct {
	value float64
	valid bool
}

// NewFeature returns a known feature.
func NewFeature(v float64) Feature { return Feature{value: v, valid: true} }

// UnknownFeature returns a feature with no value.
func UnknownFeature() Feature { return Feature{} }

// Known reports whether the feature has a value.
func (f Feature) Known() bool { return f.valid }

// Value returns the value and whether it is known.
func (f Feature) Value() (float64, bool) { return f.value, f.valid }

func (f Feature) String() string {
	if !f.valid {
		return Unknown
	}
	return strconv.FormatFloat(f.value, 'g', -1, 64)
}

// ParseFeature reads the text form produced by [Feature.String]. Empty text is unknown.
func ParseFeature(s string) (Feature, error) {
	s = strings.TrimSpace(s)
	if s == Unknown || s == "" {
		return UnknownFeature(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Feature{}, fmt.Errorf("invalid feature value %q", s)
	}
	return NewFeature(v), nil
}

func (f Feature) MarshalJSON() ([]byte, error) {
	if !f.valid {
		return json.Marshal(Unknown)
	}
	return json.Marshal(f.value)
}

func (f *Feature) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = UnknownFeature()
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseFeature(s)
		if err != nil {
			return err
		}
		*f = parsed
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = NewFeature(v)
	return nil
}

// Null converts the feature for storage in a nullable column.
func (f Feature) Null() sql.NullFloat64 {
	return sql.NullFloat64{Float64: f.value, Valid: f.valid}
}

// FeatureFromNull converts a nullable column back into a feature.
func FeatureFromNull(n sql.NullFloat64) Feature {
	if !n.Valid {
		return UnknownFeature()
	}
	return NewFeature(n.Float64)
}

// Features is the fixed set of twelve audio features reported for a track.
type Features struct {
	Tempo            Feature `json:"tempo"`
	Valence          Feature `json:"valence"`
	Liveness         Feature `json:"liveness"`
	Acousticness     Feature `json:"acousticness"`
	Danceability     Feature `json:"danceability"`
	Energy           Feature `json:"energy"`
	Speechiness      Feature `json:"speechiness"`
	Instrumentalness Feature `json:"instrumentalness"`
	Loudness         Feature `json:"loudness"`
	Key              Feature `json:"key"`
	Mode             Feature `json:"mode"`
	TimeSignature    Feature `json:"time_signature"`
}

// FeatureNames lists the feature fields in column order.
var FeatureNames = []string{
	"tempo", "valence", "liveness", "acousticness", "danceability", "energy",
	"speechiness", "instrumentalness", "loudness", "key", "mode", "time_signature",
}

// UnknownFeatures returns a record with every feature unknown.
func UnknownFeatures() Features { return Features{} }

// Slice returns the features in [FeatureNames] order.
func (f Features) Slice() []Feature {
	return []Feature{
		f.Tempo, f.Valence, f.Liveness, f.Acousticness, f.Danceability, f.Energy,
		f.Speechiness, f.Instrumentalness, f.Loudness, f.Key, f.Mode, f.TimeSignature,
	}
}

// Pointers returns addresses of the features in [FeatureNames] order.
func (f *Features) Pointers() []*Feature {
	return []*Feature{
		&f.Tempo, &f.Valence, &f.Liveness, &f.Acousticness, &f.Danceability, &f.Energy,
		&f.Speechiness, &f.Instrumentalness, &f.Loudness, &f.Key, &f.Mode, &f.TimeSignature,
	}
}

// AllUnknown reports whether no feature has a value.
func (f Features) AllUnknown() bool {
	for _, v := range f.Slice() {
		if v.Known() {
			return false
		}
	}
	return true
}
