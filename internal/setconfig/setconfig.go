// Package setconfig holds the in-memory set collection used by the routine
// and workout builders. Sets are stored as sparse overrides on top of shared
// defaults: an entry only contains the fields that deviate, so "explicitly
// set to X" stays distinguishable from "inherits the default".
package setconfig

import (
	"regexp"
	"strconv"
)

// Well-known set configuration fields.
const (
	FieldSetVariant       = "set_variant"
	FieldSetType          = "set_type"
	FieldReps             = "reps"
	FieldTimedSetDuration = "timed_set_duration"
	FieldWeight           = "weight"
	FieldUnit             = "unit"
	FieldWeightUnit       = "weight_unit"
)

const DefaultInitialSetCount = 3

var setLabelRegex = regexp.MustCompile(`^Set (\d+)$`)

// fields cloned from the last set's effective config when a new set is added
var clonedFields = []string{
	FieldSetType,
	FieldReps,
	FieldTimedSetDuration,
	FieldWeight,
	FieldUnit,
	FieldWeightUnit,
}

// FieldValues is a sparse set configuration: only present keys are set.
type FieldValues map[string]any

func (fv FieldValues) clone() FieldValues {
	cloned := make(FieldValues, len(fv))
	for k, v := range fv {
		cloned[k] = v
	}
	return cloned
}

// NewDefaults returns the default configuration for a fresh collection:
// three sets of ten reps, bodyweight.
func NewDefaults() FieldValues {
	return FieldValues{
		FieldSetType:          "reps",
		FieldReps:             10,
		FieldTimedSetDuration: 30,
		FieldWeight:           0.0,
		FieldUnit:             "body",
	}
}

// Collection is a set collection with shared defaults and per-set overrides.
// It never shrinks below one set once initialized.
type Collection struct {
	defaults FieldValues
	sets     []FieldValues
}

func NewCollection(initialCount int, defaults FieldValues) *Collection {
	if initialCount < 1 {
		initialCount = DefaultInitialSetCount
	}
	if defaults == nil {
		defaults = NewDefaults()
	}

	sets := make([]FieldValues, 0, initialCount)
	for i := 0; i < initialCount; i++ {
		sets = append(sets, FieldValues{
			FieldSetVariant: "Set " + strconv.Itoa(i+1),
		})
	}

	return &Collection{
		defaults: defaults.clone(),
		sets:     sets,
	}
}

func (c *Collection) Len() int {
	return len(c.sets)
}

func (c *Collection) Defaults() FieldValues {
	return c.defaults.clone()
}

// Set returns the raw (sparse) overrides of one set.
func (c *Collection) Set(index int) FieldValues {
	if index < 0 || index >= len(c.sets) {
		return FieldValues{}
	}
	return c.sets[index].clone()
}

// UpdateDefault changes one shared default. Every set without an explicit
// override of that field picks the new value up retroactively.
func (c *Collection) UpdateDefault(field string, value any) {
	c.defaults[field] = value
}

// UpdateSetField sets one field on one set only. The overrides slice grows
// with empty entries as needed so that index is addressable.
func (c *Collection) UpdateSetField(index int, field string, value any) {
	if index < 0 {
		return
	}
	for len(c.sets) <= index {
		c.sets = append(c.sets, FieldValues{})
	}
	c.sets[index][field] = value
}

func (c *Collection) SetName(index int, name string) {
	c.UpdateSetField(index, FieldSetVariant, name)
}

// Merged returns the effective configuration of one set: defaults overlaid
// with that set's explicit overrides.
func (c *Collection) Merged(index int) FieldValues {
	merged := c.defaults.clone()
	if index >= 0 && index < len(c.sets) {
		for k, v := range c.sets[index] {
			merged[k] = v
		}
	}
	return merged
}

// AddSet appends a new set cloned from the EFFECTIVE configuration of the
// current last set, so customizations propagate forward. The label is
// "Set N+1" where N is the highest existing "Set <N>" label; renamed or
// removed sets therefore never cause label collisions.
func (c *Collection) AddSet() {
	if len(c.sets) == 0 {
		c.sets = append(c.sets, FieldValues{})
		return
	}

	lastMerged := c.Merged(len(c.sets) - 1)
	newSet := FieldValues{}
	for _, field := range clonedFields {
		if v, ok := lastMerged[field]; ok {
			newSet[field] = v
		}
	}

	maxLabel := 0
	for _, set := range c.sets {
		variant, ok := set[FieldSetVariant].(string)
		if !ok {
			continue
		}
		match := setLabelRegex.FindStringSubmatch(variant)
		if match == nil {
			continue
		}
		if n, err := strconv.Atoi(match[1]); err == nil && n > maxLabel {
			maxLabel = n
		}
	}
	newSet[FieldSetVariant] = "Set " + strconv.Itoa(maxLabel+1)

	c.sets = append(c.sets, newSet)
}

// RemoveLastSet pops the last set. A collection never goes below one set,
// removing the only remaining set is a no-op.
func (c *Collection) RemoveLastSet() {
	if len(c.sets) <= 1 {
		return
	}
	c.sets = c.sets[:len(c.sets)-1]
}
