package appprofile

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/appprofile/internal/appprofile/notify"
)

// ruleRef locates a stored rule.
type ruleRef struct {
	file int
	idx  int
	r    *rule
}

// ordered returns every rule in global priority order.
func (c *Config) ordered() []ruleRef {
	var out []ruleRef
	for fi, f := range c.files {
		for ri, r := range f.rules {
			out = append(out, ruleRef{file: fi, idx: ri, r: r})
		}
	}
	return out
}

// findRule returns the global position and location of the rule id.
func (c *Config) findRule(id int) (int, ruleRef, bool) {
	pos := 0
	for fi, f := range c.files {
		for ri, r := range f.rules {
			if r.id == id {
				return pos, ruleRef{file: fi, idx: ri, r: r}, true
			}
			pos++
		}
	}
	return -1, ruleRef{}, false
}

func (c *Config) exportRule(ref ruleRef) Rule {
	return Rule{
		ID:      ref.r.id,
		Pattern: ref.r.spec.Pattern,
		Profile: ref.r.spec.Profile,
		Source:  c.files[ref.file].path,
	}
}

// Rules returns all rules in global priority order, highest first.
func (c *Config) Rules() []Rule {
	refs := c.ordered()
	out := make([]Rule, len(refs))
	for i, ref := range refs {
		out[i] = c.exportRule(ref)
	}
	return out
}

// RuleCount returns the number of rules.
func (c *Config) RuleCount() int {
	n := 0
	for _, f := range c.files {
		n += len(f.rules)
	}
	return n
}

// Rule returns the rule with the given ID.
func (c *Config) Rule(id int) (Rule, bool) {
	_, ref, ok := c.findRule(id)
	if !ok {
		return Rule{}, false
	}
	return c.exportRule(ref), true
}

// RuleIndex returns the global priority index of the rule, or -1.
func (c *Config) RuleIndex(id int) int {
	pos, _, _ := c.findRule(id)
	return pos
}

// CreateRule appends a rule to the end of target's rules and returns its
// ID. target must pass CheckValidSourceFile.
func (c *Config) CreateRule(target string, spec RuleSpec) (int, Diff, error) {
	if !spec.Pattern.Feature.Valid() {
		return 0, Diff{}, fmt.Errorf("%w: %q", ErrInvalidFeature, spec.Pattern.Feature)
	}
	path, err := c.requireSourceFile(target)
	if err != nil {
		return 0, Diff{}, err
	}

	f := c.ensureFile(path)
	r := &rule{id: c.newID(), spec: spec}
	f.rules = append(f.rules, r)

	var d Diff
	d.add(notify.Change{
		Topic:  notify.TopicRules,
		Type:   notify.ChangeInserted,
		RuleID: r.id,
		Index:  c.RuleIndex(r.id),
		Source: path,
	})
	c.logger.Debug("rule created",
		zap.Int("id", r.id),
		zap.String("path", path))
	c.publish(d)
	return r.id, d, nil
}

// UpdateRule replaces the pattern and profile of a rule and moves it to
// target. A rule moved to a later file becomes that file's first rule; a
// rule moved to an earlier file becomes its last rule. Either way the
// rule keeps its place relative to rules in other files as far as the
// file boundaries allow.
func (c *Config) UpdateRule(target string, id int, spec RuleSpec) (Diff, error) {
	if !spec.Pattern.Feature.Valid() {
		return Diff{}, fmt.Errorf("%w: %q", ErrInvalidFeature, spec.Pattern.Feature)
	}
	oldPos, ref, ok := c.findRule(id)
	if !ok {
		return Diff{}, fmt.Errorf("%w: %d", ErrRuleNotFound, id)
	}
	path, err := c.requireSourceFile(target)
	if err != nil {
		return Diff{}, err
	}

	oldPath := c.files[ref.file].path
	ref.r.spec = spec

	var d Diff
	if path != oldPath {
		from := c.files[ref.file]
		from.rules = removeRule(from.rules, ref.idx)

		to := c.ensureFile(path)
		toIdx := c.fileIndex(path)
		fromIdx := c.fileIndex(oldPath)
		if toIdx > fromIdx {
			to.rules = insertRule(to.rules, 0, ref.r)
		} else {
			to.rules = append(to.rules, ref.r)
		}
		ref.r.last = trailStep{}

		if newPos := c.RuleIndex(id); newPos != oldPos {
			d.add(notify.Change{
				Topic:     notify.TopicRules,
				Type:      notify.ChangeMoved,
				RuleID:    id,
				Index:     newPos,
				OldIndex:  oldPos,
				Source:    path,
				OldSource: oldPath,
			})
		}
	}

	d.add(notify.Change{
		Topic:     notify.TopicRules,
		Type:      notify.ChangeUpdated,
		RuleID:    id,
		Index:     c.RuleIndex(id),
		Source:    path,
		OldSource: oldPath,
	})
	c.publish(d)
	return d, nil
}

// DeleteRule removes a rule.
func (c *Config) DeleteRule(id int) (Diff, error) {
	pos, ref, ok := c.findRule(id)
	if !ok {
		return Diff{}, fmt.Errorf("%w: %d", ErrRuleNotFound, id)
	}

	f := c.files[ref.file]
	f.rules = removeRule(f.rules, ref.idx)

	var d Diff
	d.add(notify.Change{
		Topic:     notify.TopicRules,
		Type:      notify.ChangeRemoved,
		RuleID:    id,
		Index:     pos,
		OldSource: f.path,
	})
	c.publish(d)
	return d, nil
}

// ChangeRulePriority moves a rule delta places in the global order.
// Negative deltas raise priority. The move is applied one step at a time
// and stops at either end of the list; moving past an end is a no-op.
//
// Each step swaps the rule with its neighbour. When the neighbour lives
// in another file the rule changes file: it is placed on the far side of
// the neighbour, so the on-disk order of the files matches the new
// global order. When several files could hold the rule at the same
// global position (the rule lands between two files), the rule prefers
// the file it came from when the step reverses its previous step, then
// its current file, then the neighbour's file. A move followed by the
// opposite move therefore restores both order and file placement.
func (c *Config) ChangeRulePriority(id int, delta int) (Diff, error) {
	oldPos, ref, ok := c.findRule(id)
	if !ok {
		return Diff{}, fmt.Errorf("%w: %d", ErrRuleNotFound, id)
	}
	oldPath := c.files[ref.file].path

	dir, n := 1, delta
	if delta < 0 {
		dir, n = -1, -delta
	}
	for i := 0; i < n; i++ {
		if !c.stepRule(id, dir) {
			break
		}
	}

	newPos, ref, _ := c.findRule(id)
	var d Diff
	if newPos != oldPos {
		newPath := c.files[ref.file].path
		d.add(notify.Change{
			Topic:     notify.TopicRules,
			Type:      notify.ChangeMoved,
			RuleID:    id,
			Index:     newPos,
			OldIndex:  oldPos,
			Source:    newPath,
			OldSource: oldPath,
		})
		if newPath != oldPath {
			c.logger.Debug("rule changed file",
				zap.Int("id", id),
				zap.String("from", oldPath),
				zap.String("to", newPath))
		}
	}
	c.publish(d)
	return d, nil
}

// SetRulePriority moves a rule to the given global index, clamped to the
// valid range.
func (c *Config) SetRulePriority(id int, index int) (Diff, error) {
	pos := c.RuleIndex(id)
	if pos < 0 {
		return Diff{}, fmt.Errorf("%w: %d", ErrRuleNotFound, id)
	}
	return c.ChangeRulePriority(id, index-pos)
}

// slot is a place a rule can be inserted.
type slot struct {
	file int
	idx  int
}

// stepRule moves a rule one place up (dir -1) or down (dir 1). It reports
// false when the rule is already at that end of the list.
func (c *Config) stepRule(id int, dir int) bool {
	order := c.ordered()
	pos := -1
	for i, ref := range order {
		if ref.r.id == id {
			pos = i
			break
		}
	}
	target := pos + dir
	if pos < 0 || target < 0 || target >= len(order) {
		return false
	}

	cur := order[pos]
	neighbour := order[target]
	fromPath := c.files[cur.file].path

	// Remove the rule, then find every slot that puts it at global index
	// target among the remaining rules.
	c.files[cur.file].rules = removeRule(c.files[cur.file].rules, cur.idx)
	rest := append(order[:pos:pos], order[pos+1:]...)
	for i := range rest {
		if rest[i].file == cur.file && rest[i].idx > cur.idx {
			rest[i].idx--
		}
	}
	candidates := c.slotsAt(rest, target)

	choice := c.chooseSlot(candidates, cur.r, dir, cur.file, neighbour.file)
	f := c.files[choice.file]
	f.rules = insertRule(f.rules, choice.idx, cur.r)

	cur.r.last = trailStep{dir: dir, from: fromPath}
	return true
}

// slotsAt lists the (file, index) pairs that place a rule at global index
// g of rest.
func (c *Config) slotsAt(rest []ruleRef, g int) []slot {
	var prev, next *ruleRef
	if g > 0 {
		prev = &rest[g-1]
	}
	if g < len(rest) {
		next = &rest[g]
	}

	first, last := 0, len(c.files)-1
	if prev != nil {
		first = prev.file
	}
	if next != nil {
		last = next.file
	}

	var out []slot
	for fi := first; fi <= last; fi++ {
		switch {
		case prev != nil && fi == prev.file:
			out = append(out, slot{file: fi, idx: prev.idx + 1})
		case next != nil && fi == next.file:
			out = append(out, slot{file: fi, idx: next.idx})
		default:
			// Files strictly between prev and next hold no rules.
			out = append(out, slot{file: fi, idx: 0})
		}
	}
	return out
}

func (c *Config) chooseSlot(candidates []slot, r *rule, dir, current, neighbour int) slot {
	pick := func(file int) (slot, bool) {
		for _, s := range candidates {
			if s.file == file {
				return s, true
			}
		}
		return slot{}, false
	}

	if r.last.dir == -dir {
		if s, ok := pick(c.fileIndex(r.last.from)); ok {
			return s
		}
	}
	if s, ok := pick(current); ok {
		return s
	}
	if s, ok := pick(neighbour); ok {
		return s
	}
	return candidates[0]
}

func removeRule(rules []*rule, i int) []*rule {
	return append(rules[:i:i], rules[i+1:]...)
}

func insertRule(rules []*rule, i int, r *rule) []*rule {
	rules = append(rules, nil)
	copy(rules[i+1:], rules[i:])
	rules[i] = r
	return rules
}
