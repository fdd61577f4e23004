package appprofile

import (
	"github.com/dshills/appprofile/internal/appprofile/notify"
)

// Diff lists the changes made by one mutation, in the order they were
// applied. The same changes are published on the Config's notifier.
type Diff struct {
	Changes []notify.Change
}

// Empty reports whether the mutation changed nothing.
func (d Diff) Empty() bool {
	return len(d.Changes) == 0
}

// RuleIDs returns the IDs of rules affected by changes of type ct.
func (d Diff) RuleIDs(ct notify.ChangeType) []int {
	var ids []int
	for _, ch := range d.Changes {
		if ch.Topic == notify.TopicRules && ch.Type == ct {
			ids = append(ids, ch.RuleID)
		}
	}
	return ids
}

// Profiles returns the names of profiles affected by changes of type ct.
func (d Diff) Profiles(ct notify.ChangeType) []string {
	var names []string
	for _, ch := range d.Changes {
		if ch.Topic == notify.TopicProfiles && ch.Type == ct {
			names = append(names, ch.Profile)
		}
	}
	return names
}

func (d *Diff) add(ch notify.Change) {
	d.Changes = append(d.Changes, ch)
}

func (d *Diff) merge(other Diff) {
	d.Changes = append(d.Changes, other.Changes...)
}

// publish delivers d's changes to subscribers.
func (c *Config) publish(d Diff) {
	if d.Empty() {
		return
	}
	b := c.notifier.NewBatch()
	b.Add(d.Changes...)
	b.Commit()
}
