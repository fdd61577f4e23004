package model

import (
	"github.com/dshills/appprofile/internal/appprofile"
	"github.com/dshills/appprofile/internal/appprofile/notify"
)

// ProfileModel lists the effective profiles of a Config sorted by name.
type ProfileModel struct {
	cfg  *appprofile.Config
	sub  *notify.Subscription
	rows rows[string]
}

// NewProfileModel creates a detached ProfileModel.
func NewProfileModel() *ProfileModel {
	return &ProfileModel{}
}

// Observe registers o for row changes.
func (m *ProfileModel) Observe(o RowObserver) {
	m.rows.observers = append(m.rows.observers, o)
}

// Attach makes the model follow cfg.
func (m *ProfileModel) Attach(cfg *appprofile.Config) {
	m.Detach()
	m.cfg = cfg
	m.sub = cfg.Notifier().SubscribeTopic(notify.TopicProfiles, m.handle)
	m.rows.sync(cfg.ProfileNames())
}

// Detach stops following the current configuration and removes all rows.
func (m *ProfileModel) Detach() {
	if m.sub != nil {
		m.sub.Unsubscribe()
		m.sub = nil
	}
	m.cfg = nil
	m.rows.sync(nil)
}

// Config returns the attached configuration, or nil.
func (m *ProfileModel) Config() *appprofile.Config {
	return m.cfg
}

func (m *ProfileModel) handle(ch notify.Change) {
	if m.cfg == nil {
		return
	}
	m.rows.sync(m.cfg.ProfileNames())
	if ch.Type == notify.ChangeUpdated {
		m.rows.changed(ch.Profile)
	}
}

// Len returns the number of rows.
func (m *ProfileModel) Len() int {
	return len(m.rows.keys)
}

// At returns the profile shown at row.
func (m *ProfileModel) At(row int) (appprofile.Profile, bool) {
	if m.cfg == nil || row < 0 || row >= len(m.rows.keys) {
		return appprofile.Profile{}, false
	}
	return m.cfg.Profile(m.rows.keys[row])
}

// RowOf returns the row of the named profile, or -1.
func (m *ProfileModel) RowOf(name string) int {
	return m.rows.indexOf(name)
}
