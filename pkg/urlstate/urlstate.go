// Package urlstate converts the shareable chart state to and from URL query
// parameters.
//
// The codec is deliberately separate from the chart: everything else works on
// plain [State] values and only the outer surfaces (HTTP handlers, CLI flags)
// read or write query strings.
package urlstate

import (
	"net/url"
	"strconv"
	"strings"

	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/versiontree"
)

// Query parameter names.
const (
	ParamPackage  = "package"
	ParamSortBy   = "sortBy"
	ParamLPF      = "lpf"
	ParamSelected = "selectedVersion"
	ParamExpanded = "expanded"
)

// SortByVersion is the only meaningful value of the sortBy parameter.
const SortByVersion = "version"

// Defaults applied to absent parameters.
const (
	DefaultPackage   = "nx"
	DefaultThreshold = 0.02
	DefaultSelected  = versiontree.RootName
)

// State is the chart state that survives a page reload.
type State struct {
	Package       string
	SortByVersion bool
	// Threshold is a fraction in [0, 1], shown to users as a percentage.
	Threshold float64
	Selected  string
	Expanded  versiontree.Expanded
}

// Default returns the state of a fresh page.
func Default() State {
	return State{
		Package:   DefaultPackage,
		Threshold: DefaultThreshold,
		Selected:  DefaultSelected,
		Expanded:  versiontree.NewExpanded(),
	}
}

// Decode reads a state from query parameters. Absent or empty parameters
// take their defaults.
func Decode(q url.Values) (State, error) {
	s := Default()

	if v := strings.TrimSpace(q.Get(ParamPackage)); v != "" {
		s.Package = v
	}
	s.SortByVersion = strings.TrimSpace(q.Get(ParamSortBy)) == SortByVersion

	if v := q.Get(ParamLPF); strings.TrimSpace(v) != "" {
		t, err := ParsePercent(v)
		if err != nil {
			return State{}, err
		}
		s.Threshold = t
	}
	if v := strings.TrimSpace(q.Get(ParamSelected)); v != "" {
		s.Selected = v
	}
	if v := q.Get(ParamExpanded); v != "" {
		s.Expanded = versiontree.ParseExpanded(v)
	}
	return s, nil
}

// Encode writes s as query parameters, leaving out values equal to their
// defaults.
func Encode(s State) url.Values {
	q := url.Values{}
	if s.Package != "" && s.Package != DefaultPackage {
		q.Set(ParamPackage, s.Package)
	}
	if s.SortByVersion {
		q.Set(ParamSortBy, SortByVersion)
	}
	if lpf := FormatPercent(s.Threshold); lpf != FormatPercent(DefaultThreshold) {
		q.Set(ParamLPF, lpf)
	}
	if s.Selected != "" && s.Selected != DefaultSelected {
		q.Set(ParamSelected, s.Selected)
	}
	if len(s.Expanded) > 0 {
		q.Set(ParamExpanded, s.Expanded.String())
	}
	return q
}

// Query returns the encoded query string of s.
func (s State) Query() string { return Encode(s).Encode() }

// Select applies a chart selection the way a click does: an aggregated name
// is added to the expanded set and the focus moves to its logical parent,
// any other name becomes the focus.
func (s State) Select(name string, aggregated bool) State {
	s.Expanded = s.Expanded.Clone()
	if aggregated {
		s.Expanded.Add(name)
		s.Selected = versiontree.LogicalParent(name)
		return s
	}
	s.Selected = name
	return s
}

// FormatPercent renders a fraction as a percentage with two decimals:
// 0.02 → "2.00".
func FormatPercent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 2, 64)
}

// ParsePercent reads a percentage string back into a fraction. Surrounding
// whitespace and missing decimals are accepted: " 2 " → 0.02.
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errs.New(errs.ErrCodeInvalidFormat, "empty percentage")
	}
	// Shifting the exponent keeps the result the closest float to the
	// written decimal.
	f, err := strconv.ParseFloat(s+"e-2", 64)
	if err != nil || strings.ContainsAny(s, "eE") {
		return 0, errs.New(errs.ErrCodeInvalidFormat, "invalid percentage %q", s)
	}
	if err := errs.ValidateThreshold(f); err != nil {
		return 0, err
	}
	return f, nil
}
