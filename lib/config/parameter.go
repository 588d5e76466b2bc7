// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package config

import "math/rand/v2"

// BuildParameter is a build parameter attached to a tracked suite.
// A parameter either has a fixed Value or picks one of RandomValues on
// every run, which lets a rotating suite cover several settings.
type BuildParameter struct {
	Name         string   `yaml:"name"`
	Value        string   `yaml:"value"`
	RandomValues []string `yaml:"random_values"`
}

// GenerateValue returns Value when set, else a random element of
// RandomValues, else "". ok is false only in the last case.
func (p BuildParameter) GenerateValue(r *rand.Rand) (value string, ok bool) {
	if p.Value != "" {
		return p.Value, true
	}
	if len(p.RandomValues) == 0 {
		return "", false
	}
	if r == nil {
		return p.RandomValues[rand.IntN(len(p.RandomValues))], true
	}
	return p.RandomValues[r.IntN(len(p.RandomValues))], true
}
