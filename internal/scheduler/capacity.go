package scheduler

// SlotChange is a single capacity movement: Delta is +1 for an insertion and
// -1 for a deletion.
type SlotChange struct {
	Target Target
	Delta  int
}

// Insert reports whether the change claims a place.
func (c SlotChange) Insert() bool { return c.Delta > 0 }

// ChangedTargets returns the distinct targets touched by changes in input order.
func ChangedTargets(changes []SlotChange) []Target {
	seen := make(map[Target]struct{}, len(changes))
	out := make([]Target, 0, len(changes))
	for _, change := range changes {
		if _, ok := seen[change.Target]; ok {
			continue
		}
		seen[change.Target] = struct{}{}
		out = append(out, change.Target)
	}
	return out
}

// CheckAndReserve applies changes to a working copy of counts and verifies that
// no insertion pushes a target past its limit. All deletions are applied before
// any insertion, so a commit that frees a place can reuse it. The returned map
// holds the resulting counts for every touched target; counts is never mutated.
//
// An insertion whose target has no entry in limits yields *UnknownTargetError.
// The first insertion that would exceed its limit yields *CapacityError.
func CheckAndReserve(changes []SlotChange, counts map[Target]int, limits map[Target]int) (map[Target]int, error) {
	working := make(map[Target]int, len(changes))
	for _, target := range ChangedTargets(changes) {
		working[target] = counts[target]
	}

	for _, change := range changes {
		if change.Insert() {
			continue
		}
		if working[change.Target] > 0 {
			working[change.Target]--
		}
	}

	for _, change := range changes {
		if !change.Insert() {
			continue
		}
		limit, ok := limits[change.Target]
		if !ok {
			return nil, &UnknownTargetError{Target: change.Target, Reason: "sem limite de capacidade"}
		}
		current := working[change.Target]
		if current+1 > limit {
			return nil, &CapacityError{Target: change.Target, Current: current, Max: limit}
		}
		working[change.Target] = current + 1
	}

	return working, nil
}
