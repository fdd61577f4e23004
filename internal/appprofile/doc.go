// Package appprofile models the application profile configuration of a
// graphics driver.
//
// A configuration is spread across a global file, holding the switch that
// enables application profiles, and any number of rules and profiles
// files found on a search path. Rules map a process to a named profile;
// profiles are lists of driver settings.
//
// Load builds a Config from disk. Edits are made on a Config through
// methods that return a Diff and publish the same changes on the Config's
// notifier. The save package compares an edited Config with the one that
// was loaded to decide which files to write.
//
// Basic usage:
//
//	cfg, res := appprofile.Load(globalPath, searchPath)
//	if res.Degraded() {
//	    // some files failed to load and will not be written
//	}
//	id, _, err := cfg.CreateRule(target, appprofile.RuleSpec{
//	    Pattern: appprofile.Pattern{Feature: appprofile.FeatureProcname, Matches: "glxgears"},
//	    Profile: "profile_1",
//	})
package appprofile
