// Package catalog loads the metric and dimension vocabulary the translator reasons over.
package catalog

import "time"

// MetricKind classifies a metric. Only simple aggregatable scalars exist today.
type MetricKind string

const MetricSimple MetricKind = "simple"

// Metric describes a named, aggregatable numeric fact.
type Metric struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Kind        MetricKind `json:"kind"`
}

// DimensionKind is the value domain of a dimension.
type DimensionKind string

const (
	DimensionTime        DimensionKind = "time"
	DimensionCategorical DimensionKind = "categorical"
)

// Dimension describes a named attribute usable for grouping or filtering.
type Dimension struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Kind        DimensionKind `json:"kind"`
	Grain       string        `json:"grain,omitempty"`
}

// Origin records which path produced a catalog.
type Origin string

const (
	OriginLive     Origin = "live"
	OriginFallback Origin = "fallback"
)

// Catalog is an immutable snapshot of the vocabulary.
type Catalog struct {
	Metrics    []Metric    `json:"metrics"`
	Dimensions []Dimension `json:"dimensions"`
	Origin     Origin      `json:"origin"`
	LoadedAt   time.Time   `json:"loaded_at"`
}

// HasMetric reports whether name is a known metric.
func (c *Catalog) HasMetric(name string) bool {
	_, ok := c.Metric(name)
	return ok
}

// HasDimension reports whether name is a known dimension.
func (c *Catalog) HasDimension(name string) bool {
	_, ok := c.Dimension(name)
	return ok
}

// Metric looks up a metric by name.
func (c *Catalog) Metric(name string) (Metric, bool) {
	if c == nil {
		return Metric{}, false
	}
	for _, m := range c.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Dimension looks up a dimension by name.
func (c *Catalog) Dimension(name string) (Dimension, bool) {
	if c == nil {
		return Dimension{}, false
	}
	for _, d := range c.Dimensions {
		if d.Name == name {
			return d, true
		}
	}
	return Dimension{}, false
}

// MetricNames returns metric names in catalog order.
func (c *Catalog) MetricNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Metrics))
	for _, m := range c.Metrics {
		names = append(names, m.Name)
	}
	return names
}

// DimensionNames returns dimension names in catalog order.
func (c *Catalog) DimensionNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Dimensions))
	for _, d := range c.Dimensions {
		names = append(names, d.Name)
	}
	return names
}
