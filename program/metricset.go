package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

type MetricKey string

const (
	MetricNonlinearity    MetricKey = "nonlinearity"
	MetricSAC             MetricKey = "sac"
	MetricBICNL           MetricKey = "bic_nl"
	MetricBICSAC          MetricKey = "bic_sac"
	MetricLAP             MetricKey = "lap"
	MetricDAP             MetricKey = "dap"
	MetricAlgebraicDegree MetricKey = "algebraic_degree"
	MetricBijective       MetricKey = "bijective"
	MetricBalanced        MetricKey = "balanced"
	MetricDiffUniformity  MetricKey = "differential_uniformity"
)

// metricAliases maps alternative backend spellings onto the vocabulary.
var metricAliases = map[string]MetricKey{
	"diff_uniformity": MetricDiffUniformity,
}

var knownMetrics = map[MetricKey]bool{
	MetricNonlinearity:    true,
	MetricSAC:             true,
	MetricBICNL:           true,
	MetricBICSAC:          true,
	MetricLAP:             true,
	MetricDAP:             true,
	MetricAlgebraicDegree: true,
	MetricBijective:       true,
	MetricBalanced:        true,
	MetricDiffUniformity:  true,
}

type metricKind uint8

const (
	kindNumber metricKind = iota + 1
	kindBool
)

// MetricValue is either a number or a boolean.
type MetricValue struct {
	kind metricKind
	num  float64
	flag bool
}

func Number(v float64) MetricValue { return MetricValue{kind: kindNumber, num: v} }
func Bool(v bool) MetricValue      { return MetricValue{kind: kindBool, flag: v} }

func (v MetricValue) Float() (float64, bool) {
	if v.kind != kindNumber {
		return 0, false
	}
	return v.num, true
}

func (v MetricValue) Bool() (bool, bool) {
	if v.kind != kindBool {
		return false, false
	}
	return v.flag, true
}

func (v MetricValue) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case kindBool:
		return strconv.FormatBool(v.flag)
	}
	return "<unset>"
}

func (v MetricValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case kindBool:
		return json.Marshal(v.flag)
	}
	return []byte("null"), nil
}

// MetricSet maps metric keys to externally computed values. A key that is
// missing means the metric is unavailable, which is not the same as zero.
type MetricSet map[MetricKey]MetricValue

func (s MetricSet) Lookup(key MetricKey) (MetricValue, bool) {
	v, ok := s[key]
	return v, ok
}

func (s MetricSet) Float(key MetricKey) (float64, bool) {
	v, ok := s[key]
	if !ok {
		return 0, false
	}
	return v.Float()
}

func (s MetricSet) Clone() MetricSet {
	if s == nil {
		return nil
	}
	out := make(MetricSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// UnmarshalJSON keeps only known keys. Nulls and values that are neither
// numbers nor booleans are treated as absent.
func (s *MetricSet) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode metrics: %w", err)
	}
	*s = collectMetrics(raw)
	return nil
}

func metricFromAny(val any) (MetricValue, bool) {
	switch v := val.(type) {
	case float64:
		return Number(v), true
	case bool:
		return Bool(v), true
	}
	return MetricValue{}, false
}

// collectMetrics picks the vocabulary keys out of a flat report object,
// as returned by the file analysis endpoint.
func collectMetrics(fields map[string]any) MetricSet {
	out := make(MetricSet)
	for name, val := range fields {
		key := MetricKey(name)
		if alias, ok := metricAliases[name]; ok {
			key = alias
		}
		if !knownMetrics[key] {
			continue
		}
		if v, ok := metricFromAny(val); ok {
			out[key] = v
		}
	}
	return out
}
