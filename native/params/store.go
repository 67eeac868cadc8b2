package params

import (
	"encoding/json"
	"fmt"
	"strings"

	"crednet/config"
)

// Settings groups the governance-tunable values read by the consensus and
// loans engines at call time. Percentages are basis points, windows seconds.
type Settings struct {
	RequiredSubmissionsBps  uint64 `json:"requiredSubmissionsBps"`
	MaximumToleranceBps     uint64 `json:"maximumToleranceBps"`
	ResponseExpirySeconds   int64  `json:"responseExpirySeconds"`
	TermsExpirySeconds      int64  `json:"termsExpirySeconds"`
	SafetyIntervalSeconds   int64  `json:"safetyIntervalSeconds"`
	LiquidateRewardBps      uint64 `json:"liquidateRewardBps"`
	RequestRateLimitSeconds int64  `json:"requestRateLimitSeconds"`
}

// SettingsFromConfig seeds the default settings from the protocol
// configuration file.
func SettingsFromConfig(cfg config.ProtocolConfig) Settings {
	return Settings{
		RequiredSubmissionsBps:  cfg.RequiredSubmissionsBps,
		MaximumToleranceBps:     cfg.MaximumToleranceBps,
		ResponseExpirySeconds:   cfg.ResponseExpirySeconds,
		TermsExpirySeconds:      cfg.TermsExpirySeconds,
		SafetyIntervalSeconds:   cfg.SafetyIntervalSeconds,
		LiquidateRewardBps:      cfg.LiquidateRewardBps,
		RequestRateLimitSeconds: cfg.RequestRateLimitSeconds,
	}
}

// Pauses captures which modules governance has halted.
type Pauses struct {
	Consensus bool `json:"consensus"`
	Loans     bool `json:"loans"`
}

// IsPaused implements the native/common.PauseView interface.
func (p Pauses) IsPaused(module string) bool {
	switch strings.ToLower(strings.TrimSpace(module)) {
	case "consensus":
		return p.Consensus
	case "loans":
		return p.Loans
	default:
		return false
	}
}

// StoreState captures the subset of state manager capabilities required by
// the parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Store provides typed accessors for governance-controlled parameters.
// Authorization happens upstream: only the governance engine holds a writable
// handle.
type Store struct {
	state    StoreState
	defaults Settings
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend and the defaults to fall back on when no override is persisted.
func NewStore(state StoreState, defaults Settings) *Store {
	return &Store{state: state, defaults: defaults}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// SetSettings persists a settings override. Values are marshalled as JSON to
// align with governance proposal payloads.
func (s *Store) SetSettings(settings Settings) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("params: encode settings: %w", err)
	}
	return state.ParamStoreSet(ParamsKeySettings, encoded)
}

// Settings loads the persisted settings override, falling back to the
// configured defaults when unset.
func (s *Store) Settings() (Settings, error) {
	if s == nil {
		return Settings{}, fmt.Errorf("params: store not configured")
	}
	if s.state == nil {
		return s.defaults, nil
	}
	raw, ok, err := s.state.ParamStoreGet(ParamsKeySettings)
	if err != nil {
		return Settings{}, fmt.Errorf("params: load settings: %w", err)
	}
	if !ok {
		return s.defaults, nil
	}
	var settings Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("params: decode settings: %w", err)
	}
	return settings, nil
}

// SetPauses persists the module pause configuration.
func (s *Store) SetPauses(pauses Pauses) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(pauses)
	if err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyPauses, encoded)
}

// Pauses loads the persisted pause configuration. When unset, nothing is
// paused.
func (s *Store) Pauses() (Pauses, error) {
	if s == nil {
		return Pauses{}, fmt.Errorf("params: store not configured")
	}
	if s.state == nil {
		return Pauses{}, nil
	}
	raw, ok, err := s.state.ParamStoreGet(ParamsKeyPauses)
	if err != nil {
		return Pauses{}, fmt.Errorf("params: load pauses: %w", err)
	}
	if !ok {
		return Pauses{}, nil
	}
	var pauses Pauses
	if err := json.Unmarshal(raw, &pauses); err != nil {
		return Pauses{}, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, nil
}

// IsPaused implements native/common.PauseView over the persisted pause
// configuration. Lookup errors fail closed: the module reads as paused.
func (s *Store) IsPaused(module string) bool {
	pauses, err := s.Pauses()
	if err != nil {
		return true
	}
	return pauses.IsPaused(module)
}
