package dentalchart

import "testing"

func TestUIState_Defaults(t *testing.T) {
	u := NewUIState()
	if u.Mode != ModeSurface || u.Active != Caries {
		t.Errorf("defaults %+v", u)
	}
	if u.SelectedTooth != 0 || u.SelectedSurface != NoSurface {
		t.Errorf("selection %+v", u)
	}
}

func TestUIState_WithMode(t *testing.T) {
	u := NewUIState().WithMode(ModeWhole)
	if u.Active != Crown {
		t.Errorf("whole mode active = %v, want first whole entry", u.Active)
	}
	u, err := u.WithActive(Missing)
	if err != nil {
		t.Fatal(err)
	}
	if u.WithMode(ModeWhole).Active != Missing {
		t.Error("re-entering the same mode must keep the active condition")
	}
	if u.WithMode(ModeSurface).Active != Caries {
		t.Error("surface mode must fall back to the first surface entry")
	}
}

func TestUIState_WithActiveRejectsOtherCategory(t *testing.T) {
	u := NewUIState()
	if _, err := u.WithActive(Crown); err == nil {
		t.Error("expected a whole condition to be rejected in surface mode")
	}
	if _, err := u.WithActive(SurfaceCondition("plaque")); err == nil {
		t.Error("expected uncatalogued condition to be rejected")
	}
	next, err := u.WithActive(Healthy)
	if err != nil || next.Active != Healthy {
		t.Errorf("healthy should be selectable: %v", err)
	}
}

func TestUIState_DigitKeys(t *testing.T) {
	u := NewUIState()
	if _, changed := u.HandleKey("3"); changed {
		t.Error("digit keys without a selected tooth must be ignored")
	}
	u.SelectedTooth = 8
	for i, want := range Surfaces {
		next, changed := u.HandleKey(string(rune('1' + i)))
		if !changed || next.SelectedSurface != want {
			t.Errorf("key %d selected %s", i+1, next.SelectedSurface)
		}
	}
	for _, k := range []string{"0", "6", "a", "12"} {
		if _, changed := u.HandleKey(k); changed {
			t.Errorf("key %q should be ignored", k)
		}
	}
	u.SelectedSurface = Mesial
	u, changed := u.HandleKey("Escape")
	if !changed || u.SelectedTooth != 0 || u.SelectedSurface != NoSurface {
		t.Errorf("escape left %+v", u)
	}
}

func TestTarget_KeyRoundTrip(t *testing.T) {
	targets := []Target{
		{Kind: TargetSurface, Tooth: 3, Surface: Occlusal},
		{Kind: TargetTooth, Tooth: 30},
		{Kind: TargetMode, Mode: ModeWhole},
		{Kind: TargetCondition, Condition: RootCanal},
		{Kind: TargetCondition, Condition: Implant},
		{Kind: TargetMobility, Mobility: 2},
		{Kind: TargetReset},
	}
	for _, tg := range targets {
		got, err := ParseTarget(tg.Key())
		if err != nil {
			t.Fatalf("ParseTarget(%q): %v", tg.Key(), err)
		}
		if got != tg {
			t.Errorf("ParseTarget(%q) = %+v, want %+v", tg.Key(), got, tg)
		}
	}
	for _, bad := range []string{"", "surface:3", "surface:x:occlusal", "surface:3:top", "mode:3d", "cond:plaque", "reset:1", "tooth"} {
		if _, err := ParseTarget(bad); err == nil {
			t.Errorf("ParseTarget(%q) should fail", bad)
		}
	}
}

func TestInterpret(t *testing.T) {
	u := NewUIState()

	next, a := Interpret(u, Target{Kind: TargetSurface, Tooth: 3, Surface: Occlusal})
	if a != (ApplySurface{Tooth: 3, Surface: Occlusal, Condition: Caries}) {
		t.Errorf("surface click produced %+v", a)
	}
	if next.SelectedTooth != 3 || next.SelectedSurface != Occlusal {
		t.Errorf("selection %+v", next)
	}

	next, a = Interpret(u, Target{Kind: TargetTooth, Tooth: 5})
	if a != nil || next.SelectedTooth != 5 {
		t.Errorf("tooth click in surface mode: %+v %+v", next, a)
	}

	whole := u.WithMode(ModeWhole)
	whole, _ = whole.WithActive(Missing)
	if _, a = Interpret(whole, Target{Kind: TargetSurface, Tooth: 1, Surface: Buccal}); a != (ApplyWhole{Tooth: 1, Condition: Missing}) {
		t.Errorf("surface click in whole mode produced %+v", a)
	}
	if _, a = Interpret(whole, Target{Kind: TargetTooth, Tooth: 1}); a != (ApplyWhole{Tooth: 1, Condition: Missing}) {
		t.Errorf("tooth click in whole mode produced %+v", a)
	}

	if _, a = Interpret(u, Target{Kind: TargetMobility, Mobility: 1}); a != nil {
		t.Error("mobility without selection must be ignored")
	}
	u.SelectedTooth = 7
	if _, a = Interpret(u, Target{Kind: TargetMobility, Mobility: 1}); a != (SetMobility{Tooth: 7, Mobility: 1}) {
		t.Errorf("mobility produced %+v", a)
	}
	if _, a = Interpret(u, Target{Kind: TargetReset}); a != (ResetTooth{Tooth: 7}) {
		t.Errorf("reset produced %+v", a)
	}

	next, a = Interpret(u, Target{Kind: TargetCondition, Condition: Crown})
	if a != nil || next.Active != Caries {
		t.Error("selecting a whole condition in surface mode must be ignored")
	}
}
