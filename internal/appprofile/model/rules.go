package model

import (
	"github.com/dshills/appprofile/internal/appprofile"
	"github.com/dshills/appprofile/internal/appprofile/notify"
)

// RuleModel lists the rules of a Config in priority order. Rows are
// keyed by rule ID.
type RuleModel struct {
	cfg  *appprofile.Config
	sub  *notify.Subscription
	rows rows[int]
}

// NewRuleModel creates a detached RuleModel.
func NewRuleModel() *RuleModel {
	return &RuleModel{}
}

// Observe registers o for row changes.
func (m *RuleModel) Observe(o RowObserver) {
	m.rows.observers = append(m.rows.observers, o)
}

// Attach makes the model follow cfg. Rows of a previously attached
// configuration are removed before the rows of cfg are inserted.
func (m *RuleModel) Attach(cfg *appprofile.Config) {
	m.Detach()
	m.cfg = cfg
	m.sub = cfg.Notifier().SubscribeTopic(notify.TopicRules, m.handle)
	m.rows.sync(m.target())
}

// Detach stops following the current configuration and removes all rows.
func (m *RuleModel) Detach() {
	if m.sub != nil {
		m.sub.Unsubscribe()
		m.sub = nil
	}
	m.cfg = nil
	m.rows.sync(nil)
}

// Config returns the attached configuration, or nil.
func (m *RuleModel) Config() *appprofile.Config {
	return m.cfg
}

func (m *RuleModel) target() []int {
	if m.cfg == nil {
		return nil
	}
	rules := m.cfg.Rules()
	ids := make([]int, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

func (m *RuleModel) handle(ch notify.Change) {
	m.rows.sync(m.target())
	switch ch.Type {
	case notify.ChangeUpdated:
		m.rows.changed(ch.RuleID)
	case notify.ChangeMoved:
		if ch.Source != ch.OldSource {
			m.rows.changed(ch.RuleID)
		}
	}
}

// Len returns the number of rows.
func (m *RuleModel) Len() int {
	return len(m.rows.keys)
}

// At returns the rule shown at row.
func (m *RuleModel) At(row int) (appprofile.Rule, bool) {
	if m.cfg == nil || row < 0 || row >= len(m.rows.keys) {
		return appprofile.Rule{}, false
	}
	return m.cfg.Rule(m.rows.keys[row])
}

// RowOf returns the row of the rule with the given ID, or -1.
func (m *RuleModel) RowOf(id int) int {
	return m.rows.indexOf(id)
}
