package leveling

import (
	"context"
	"testing"
)

func TestSettingsDefaultsPersisted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	settings, err := f.svc.Settings(ctx, 7)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if !settings.XPEnabled || !settings.SpamProtection || len(settings.LevelRoles) != 0 {
		t.Fatalf("unexpected defaults: %+v", settings)
	}
	if settings.LevelUpMessage == "" {
		t.Fatalf("expected default level up template")
	}
	if _, ok, _ := f.store.GetLevelSettings(ctx, 7); !ok {
		t.Fatalf("defaults should be persisted on first read")
	}
}

func TestUpdateSettingsPartial(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	off := false
	channel := "555"
	result, err := f.svc.UpdateSettings(ctx, 7, SettingsUpdate{XPEnabled: &off, LevelUpChannelID: &channel})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !result.OK || result.Settings.XPEnabled || !result.Settings.SpamProtection || result.Settings.LevelUpChannelID != "555" {
		t.Fatalf("unexpected settings: %+v", result)
	}

	blank := "   "
	result, err = f.svc.UpdateSettings(ctx, 7, SettingsUpdate{LevelUpMessage: &blank})
	if err != nil {
		t.Fatalf("blank update: %v", err)
	}
	if result.OK || result.Reason != ReasonInvalidArgument {
		t.Fatalf("expected blank template to be rejected, got %+v", result)
	}

	reset, err := f.svc.ResetSettings(ctx, 7)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !reset.XPEnabled || reset.LevelUpChannelID != "" {
		t.Fatalf("expected defaults after reset, got %+v", reset)
	}
}

func TestLevelRoles(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for level, role := range map[int64]string{10: "r10", 5: "r5", 20: "r20"} {
		result, err := f.svc.SetLevelRole(ctx, 7, level, role)
		if err != nil || !result.OK {
			t.Fatalf("set role %d: %+v %v", level, result, err)
		}
	}
	if result, _ := f.svc.SetLevelRole(ctx, 7, 0, "r0"); result.OK {
		t.Fatalf("level 0 role should be rejected")
	}
	if result, _ := f.svc.SetLevelRole(ctx, 7, 3, ""); result.OK {
		t.Fatalf("empty role should be rejected")
	}

	roles, err := f.svc.RolesForLevel(ctx, 7, 12)
	if err != nil {
		t.Fatalf("roles for level: %v", err)
	}
	if len(roles) != 2 || roles[0].RoleID != "r5" || roles[1].RoleID != "r10" {
		t.Fatalf("unexpected roles for level 12: %+v", roles)
	}

	if result, _ := f.svc.RemoveLevelRole(ctx, 7, 10); !result.OK {
		t.Fatalf("remove role failed: %+v", result)
	}
	if result, _ := f.svc.RemoveLevelRole(ctx, 7, 10); result.OK {
		t.Fatalf("removing a missing role should be rejected")
	}
	all, err := f.svc.LevelRoles(ctx, 7)
	if err != nil {
		t.Fatalf("level roles: %v", err)
	}
	if len(all) != 2 || all[0].Level != 5 || all[1].Level != 20 {
		t.Fatalf("unexpected roles: %+v", all)
	}
}

func TestRenderLevelUp(t *testing.T) {
	got := RenderLevelUp("{user_mention} ({user_name}) reached {level}!", "<@1>", "ana", 4)
	if got != "<@1> (ana) reached 4!" {
		t.Fatalf("unexpected render: %q", got)
	}
}
