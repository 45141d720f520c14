package config

import (
	"strconv"

	"github.com/spf13/cast"
)

// OptionalInt is a flag value that remembers whether it was given.
type OptionalInt struct {
	value int
	set   bool
}

// String returns the flag value.
func (o *OptionalInt) String() string {
	if o == nil || !o.set {
		return ""
	}
	return strconv.Itoa(o.value)
}

// Set parses val.
func (o *OptionalInt) Set(val string) error {
	v, err := cast.ToIntE(val)
	if err != nil {
		return err
	}
	o.value, o.set = v, true
	return nil
}

// Value returns the parsed value and whether the flag was given.
func (o OptionalInt) Value() (int, bool) {
	return o.value, o.set
}

// OptionalFloat is a flag value that remembers whether it was given.
type OptionalFloat struct {
	value float64
	set   bool
}

// String returns the flag value.
func (o *OptionalFloat) String() string {
	if o == nil || !o.set {
		return ""
	}
	return strconv.FormatFloat(o.value, 'g', -1, 64)
}

// Set parses val.
func (o *OptionalFloat) Set(val string) error {
	v, err := cast.ToFloat64E(val)
	if err != nil {
		return err
	}
	o.value, o.set = v, true
	return nil
}

// Value returns the parsed value and whether the flag was given.
func (o OptionalFloat) Value() (float64, bool) {
	return o.value, o.set
}

// OptionalBool is a flag value accepting integer booleans (1, 0) as well as true and false.
type OptionalBool struct {
	value bool
	set   bool
}

// String returns the flag value.
func (o *OptionalBool) String() string {
	if o == nil || !o.set {
		return ""
	}
	return strconv.FormatBool(o.value)
}

// Set parses val.
func (o *OptionalBool) Set(val string) error {
	v, err := cast.ToBoolE(val)
	if err != nil {
		return err
	}
	o.value, o.set = v, true
	return nil
}

// Value returns the parsed value and whether the flag was given.
func (o OptionalBool) Value() (bool, bool) {
	return o.value, o.set
}

// Overrides are explicitly given command line values. They take precedence over the settings
// file and the defaults.
type Overrides struct {
	T0     OptionalInt
	Stride OptionalInt

	Verbose    OptionalBool
	DisableVis OptionalBool
	Upsample   OptionalBool

	Engine  string
	Weights string

	Buffer         OptionalInt
	Beta           OptionalFloat
	FilterThresh   OptionalFloat
	Warmup         OptionalInt
	KeyframeThresh OptionalFloat
	FrontendThresh OptionalFloat
	FrontendWindow OptionalInt
	FrontendRadius OptionalInt
	FrontendNMS    OptionalInt
	BackendThresh  OptionalFloat
	BackendRadius  OptionalInt
	BackendNMS     OptionalInt
}

func applyInt(dst *int, o OptionalInt) {
	if v, ok := o.Value(); ok {
		*dst = v
	}
}

func applyFloat(dst *float64, o OptionalFloat) {
	if v, ok := o.Value(); ok {
		*dst = v
	}
}

func applyBool(dst *bool, o OptionalBool) {
	if v, ok := o.Value(); ok {
		*dst = v
	}
}

// Apply writes every given override into s.
func (o *Overrides) Apply(s *Settings) {
	applyInt(&s.T0, o.T0)
	applyInt(&s.Stride, o.Stride)
	applyBool(&s.Verbose, o.Verbose)
	applyBool(&s.DisableVis, o.DisableVis)
	applyBool(&s.Upsample, o.Upsample)
	if o.Engine != "" {
		s.Engine = o.Engine
	}
	if o.Weights != "" {
		s.Weights = o.Weights
	}
	applyInt(&s.Buffer, o.Buffer)
	applyFloat(&s.Beta, o.Beta)
	applyFloat(&s.FilterThresh, o.FilterThresh)
	applyInt(&s.Warmup, o.Warmup)
	applyFloat(&s.KeyframeThresh, o.KeyframeThresh)
	applyFloat(&s.FrontendThresh, o.FrontendThresh)
	applyInt(&s.FrontendWindow, o.FrontendWindow)
	applyInt(&s.FrontendRadius, o.FrontendRadius)
	applyInt(&s.FrontendNMS, o.FrontendNMS)
	applyFloat(&s.BackendThresh, o.BackendThresh)
	applyInt(&s.BackendRadius, o.BackendRadius)
	applyInt(&s.BackendNMS, o.BackendNMS)
}
