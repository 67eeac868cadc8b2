package params

import (
	"testing"

	"crednet/config"
)

type mockStoreState struct {
	values map[string][]byte
}

func newMockStoreState() *mockStoreState {
	return &mockStoreState{values: make(map[string][]byte)}
}

func (m *mockStoreState) ParamStoreSet(name string, value []byte) error {
	m.values[name] = append([]byte(nil), value...)
	return nil
}

func (m *mockStoreState) ParamStoreGet(name string) ([]byte, bool, error) {
	raw, ok := m.values[name]
	return raw, ok, nil
}

func TestSettingsFallBackToDefaults(t *testing.T) {
	defaults := SettingsFromConfig(config.ProtocolConfig{}.Normalise())
	store := NewStore(newMockStoreState(), defaults)

	settings, err := store.Settings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings != defaults {
		t.Fatalf("expected defaults, got %+v", settings)
	}
}

func TestSettingsOverrideRoundTrip(t *testing.T) {
	defaults := SettingsFromConfig(config.ProtocolConfig{}.Normalise())
	store := NewStore(newMockStoreState(), defaults)

	override := defaults
	override.MaximumToleranceBps = 0
	override.RequiredSubmissionsBps = 10000
	if err := store.SetSettings(override); err != nil {
		t.Fatalf("set settings: %v", err)
	}

	settings, err := store.Settings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.MaximumToleranceBps != 0 {
		t.Fatalf("override lost: %+v", settings)
	}
	if settings.RequiredSubmissionsBps != 10000 {
		t.Fatalf("override lost: %+v", settings)
	}
}

func TestPausesDefaultToRunning(t *testing.T) {
	store := NewStore(newMockStoreState(), Settings{})
	if store.IsPaused("loans") || store.IsPaused("consensus") {
		t.Fatal("modules must start unpaused")
	}

	if err := store.SetPauses(Pauses{Loans: true}); err != nil {
		t.Fatalf("set pauses: %v", err)
	}
	if !store.IsPaused("loans") {
		t.Fatal("loans should read as paused")
	}
	if store.IsPaused("consensus") {
		t.Fatal("consensus should still be running")
	}
}
