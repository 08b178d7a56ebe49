// Package navigation decides which exercise gets focus next during a live
// workout session. All functions are pure: they take the current section
// layout and the set of completed exercise ids, and a nil result means there
// is nothing left to do, i.e. the workout is over.
package navigation

import (
	"github.com/repflow/repflow/internal/workout"
)

// SectionExercises holds the exercises of one workout, grouped per section.
type SectionExercises map[workout.Section][]workout.WorkoutExercise

// Completed is the set of exercise ids already finished, local or remote.
type Completed map[string]bool

// ExerciseWithSection is a navigation target: an exercise plus the section
// it was found in.
type ExerciseWithSection struct {
	workout.WorkoutExercise
	Section workout.Section `json:"section"`
}

// FindNextIncompleteExercise scans forward from the current exercise for the
// first one not yet completed, then backward if the forward scan found
// nothing. Returns nil when every exercise in the list is complete.
func FindNextIncompleteExercise(
	all []workout.WorkoutExercise,
	currentExerciseID string,
	completed Completed,
) *workout.WorkoutExercise {
	current := -1
	for i := range all {
		if all[i].ExerciseID == currentExerciseID {
			current = i
			break
		}
	}

	for i := current + 1; i < len(all); i++ {
		if !completed[all[i].ExerciseID] {
			return &all[i]
		}
	}
	for i := current - 1; i >= 0; i-- {
		if !completed[all[i].ExerciseID] {
			return &all[i]
		}
	}
	return nil
}

// FindFirstIncompleteInSection returns the first not-completed exercise of
// one section's list, or nil.
func FindFirstIncompleteInSection(
	sectionExercises []workout.WorkoutExercise,
	completed Completed,
) *workout.WorkoutExercise {
	for i := range sectionExercises {
		if !completed[sectionExercises[i].ExerciseID] {
			return &sectionExercises[i]
		}
	}
	return nil
}

// FindLastIncompleteInSection returns the last not-completed exercise of one
// section's list, or nil.
func FindLastIncompleteInSection(
	sectionExercises []workout.WorkoutExercise,
	completed Completed,
) *workout.WorkoutExercise {
	for i := len(sectionExercises) - 1; i >= 0; i-- {
		if !completed[sectionExercises[i].ExerciseID] {
			return &sectionExercises[i]
		}
	}
	return nil
}

// NextSection returns the section after the given one in the fixed order.
// The second return value is false at the cooldown boundary.
func NextSection(section workout.Section) (workout.Section, bool) {
	for i, s := range workout.SectionOrder {
		if s == section && i+1 < len(workout.SectionOrder) {
			return workout.SectionOrder[i+1], true
		}
	}
	return "", false
}

// PreviousSection returns the section before the given one in the fixed
// order. The second return value is false at the warmup boundary.
func PreviousSection(section workout.Section) (workout.Section, bool) {
	for i, s := range workout.SectionOrder {
		if s == section && i > 0 {
			return workout.SectionOrder[i-1], true
		}
	}
	return "", false
}

// NextAfterSectionComplete is the composite decision made right after a
// section is finished:
//  1. first incomplete exercise of the next section,
//  2. else first incomplete of every later section, in order,
//  3. else LAST incomplete of every earlier section, scanned in reverse, so
//     the user backtracks from the end of the nearest unfinished section,
//  4. else nil: nothing incomplete anywhere, end the workout.
func NextAfterSectionComplete(
	completedSection workout.Section,
	sections SectionExercises,
	completed Completed,
) *ExerciseWithSection {
	completedIdx := -1
	for i, s := range workout.SectionOrder {
		if s == completedSection {
			completedIdx = i
			break
		}
	}
	if completedIdx == -1 {
		return nil
	}

	for i := completedIdx + 1; i < len(workout.SectionOrder); i++ {
		section := workout.SectionOrder[i]
		if ex := FindFirstIncompleteInSection(sections[section], completed); ex != nil {
			return &ExerciseWithSection{WorkoutExercise: *ex, Section: section}
		}
	}

	for i := completedIdx - 1; i >= 0; i-- {
		section := workout.SectionOrder[i]
		if ex := FindLastIncompleteInSection(sections[section], completed); ex != nil {
			return &ExerciseWithSection{WorkoutExercise: *ex, Section: section}
		}
	}

	return nil
}

// AreAllExercisesComplete reports whether every exercise id across every
// section is in the completed set.
func AreAllExercisesComplete(sections SectionExercises, completed Completed) bool {
	for _, sectionExercises := range sections {
		for i := range sectionExercises {
			if !completed[sectionExercises[i].ExerciseID] {
				return false
			}
		}
	}
	return true
}
