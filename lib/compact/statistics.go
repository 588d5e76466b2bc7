// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package compact

import (
	"strconv"

	"github.com/tcbot-project/tcbot/lib/teamcity"
)

// Statistics is the compact form of a build's statistic values:
// parallel slices of interned names and numeric values. Properties
// whose value is not a number are not stored.
type Statistics struct {
	_      struct{} `cbor:",toarray"`
	Names  []int32
	Values []float64
}

// NewStatistics packs the numeric properties of stats.
func NewStatistics(strings Interner, stats *teamcity.Statistics) *Statistics {
	packed := &Statistics{}
	if stats == nil {
		return packed
	}
	for _, property := range stats.Property {
		value, err := strconv.ParseFloat(property.Value, 64)
		if err != nil || property.Name == "" {
			continue
		}
		packed.Names = append(packed.Names, strings.ID(property.Name))
		packed.Values = append(packed.Values, value)
	}
	return packed
}

// Value returns the named statistic.
func (s *Statistics) Value(strings Interner, name string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	for i, id := range s.Names {
		if strings.String(id) == name {
			return s.Values[i], true
		}
	}
	return 0, false
}

// ToStatistics unpacks the statistics of buildID. Values are printed
// in their shortest exact decimal form.
func (s *Statistics) ToStatistics(strings Interner, buildID int) *teamcity.Statistics {
	stats := &teamcity.Statistics{
		Count: len(s.Names),
		Href:  teamcity.StatisticsHref(buildID),
	}
	for i, id := range s.Names {
		stats.Property = append(stats.Property, teamcity.Property{
			Name:  strings.String(id),
			Value: strconv.FormatFloat(s.Values[i], 'f', -1, 64),
		})
	}
	return stats
}
