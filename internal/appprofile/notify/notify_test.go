package notify

import (
	"fmt"
	"testing"
)

func TestChangeType_String(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want string
	}{
		{ChangeInserted, "inserted"},
		{ChangeRemoved, "removed"},
		{ChangeUpdated, "updated"},
		{ChangeMoved, "moved"},
		{ChangeReload, "reload"},
		{ChangeType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.ct.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.ct, got, tt.want)
		}
	}
}

func TestNotifier_Subscribe(t *testing.T) {
	n := New()
	defer n.Close()

	var got []Change
	sub := n.Subscribe(func(change Change) {
		got = append(got, change)
	})

	n.Notify(Change{Topic: TopicRules, Type: ChangeInserted, RuleID: 1})
	n.Notify(Change{Topic: TopicProfiles, Type: ChangeRemoved, Profile: "p"})

	if len(got) != 2 {
		t.Fatalf("received %d changes, want 2", len(got))
	}
	if got[0].RuleID != 1 || got[1].Profile != "p" {
		t.Errorf("received %+v, want changes in publish order", got)
	}

	sub.Unsubscribe()
	n.Notify(Change{Topic: TopicRules})
	if len(got) != 2 {
		t.Error("observer called after Unsubscribe")
	}
}

func TestNotifier_SubscribeTopic(t *testing.T) {
	n := New()
	defer n.Close()

	var rules, profiles int
	n.SubscribeTopic(TopicRules, func(Change) { rules++ })
	n.SubscribeTopic(TopicProfiles, func(Change) { profiles++ })

	n.Notify(Change{Topic: TopicRules, Type: ChangeMoved})
	n.Notify(Change{Topic: TopicRules, Type: ChangeUpdated})
	n.Notify(Change{Topic: TopicProfiles, Type: ChangeInserted})

	if rules != 2 {
		t.Errorf("rules observer called %d times, want 2", rules)
	}
	if profiles != 1 {
		t.Errorf("profiles observer called %d times, want 1", profiles)
	}

	n.NotifyReload()
	if rules != 3 || profiles != 2 {
		t.Errorf("reload not delivered to all topics: rules=%d profiles=%d", rules, profiles)
	}
}

func TestNotifier_Close(t *testing.T) {
	n := New()
	called := false
	n.Subscribe(func(Change) { called = true })

	n.Close()
	n.Close()
	n.Notify(Change{Topic: TopicGlobal})

	if called {
		t.Error("observer called after Close")
	}
}

func TestBatch(t *testing.T) {
	n := New()
	defer n.Close()

	var order []int
	n.Subscribe(func(c Change) { order = append(order, c.RuleID) })

	b := n.NewBatch()
	b.Add(Change{Topic: TopicRules, RuleID: 1}, Change{Topic: TopicRules, RuleID: 2})
	b.Add(Change{Topic: TopicRules, RuleID: 3})

	if len(order) != 0 {
		t.Error("changes delivered before Commit")
	}

	b.Commit()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("delivered %v, want [1 2 3]", order)
	}

	b.Commit()
	if len(order) != 3 {
		t.Errorf("second Commit delivered %v, want nothing new", order)
	}
}

func TestNotifier_DeliveryOrder(t *testing.T) {
	n := New()
	defer n.Close()

	var order []string
	n.SubscribeTopic(TopicRules, func(Change) { order = append(order, "rules-1") })
	n.Subscribe(func(Change) { order = append(order, "all-2") })
	n.SubscribeTopic(TopicProfiles, func(Change) { order = append(order, "profiles-3") })
	n.SubscribeTopic(TopicRules, func(Change) { order = append(order, "rules-4") })
	n.Subscribe(func(Change) { order = append(order, "all-5") })

	for i := 0; i < 20; i++ {
		order = order[:0]
		n.Notify(Change{Topic: TopicRules})
		want := []string{"rules-1", "all-2", "rules-4", "all-5"}
		if fmt.Sprint(order) != fmt.Sprint(want) {
			t.Fatalf("rules change delivered %v, want %v", order, want)
		}

		order = order[:0]
		n.NotifyReload()
		want = []string{"rules-1", "all-2", "profiles-3", "rules-4", "all-5"}
		if fmt.Sprint(order) != fmt.Sprint(want) {
			t.Fatalf("reload delivered %v, want %v", order, want)
		}
	}
}
