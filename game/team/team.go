package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/wricardo/heroduel/game/engine"
)

var (
	ErrInvalidTeam        = errors.New("invalid team")
	ErrMissingParticipant = errors.New("participant id is required")
	ErrValidatorFault     = errors.New("team validator failed")
)

// Hero is a roster entry as submitted by a client. Every field but Name is optional.
type Hero struct {
	Name     string `json:"name"`
	Weapon   string `json:"weapon,omitempty"`
	Assist   string `json:"assist,omitempty"`
	Special  string `json:"special,omitempty"`
	PassiveA string `json:"passivea,omitempty"`
	PassiveB string `json:"passiveb,omitempty"`
	PassiveC string `json:"passivec,omitempty"`
	PassiveS string `json:"passives,omitempty"`
	Asset    string `json:"asset,omitempty"`
	Flaw     string `json:"flaw,omitempty"`
	Merges   *int   `json:"merges,omitempty"`
}

// Roster is an ordered list of submitted heroes
type Roster []Hero

// RejectedError carries the validation errors of a refused roster
type RejectedError struct {
	Errors []engine.ValidationError
}

func (e *RejectedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		if ve.Index >= 0 {
			msgs = append(msgs, fmt.Sprintf("hero %d: %s", ve.Index+1, ve.Message))
		} else {
			msgs = append(msgs, ve.Message)
		}
	}
	return fmt.Sprintf("%s: %s", ErrInvalidTeam, strings.Join(msgs, "; "))
}

func (e *RejectedError) Unwrap() error {
	return ErrInvalidTeam
}

// Normalize fills optional fields: empty skill slots and modifiers become "",
// merges default to 0 and rarity is always engine.DefaultRarity.
func Normalize(r Roster) []engine.HeroBuild {
	out := make([]engine.HeroBuild, 0, len(r))
	for _, h := range r {
		merges := 0
		if h.Merges != nil {
			merges = *h.Merges
		}
		out = append(out, engine.HeroBuild{
			Name:     strings.TrimSpace(h.Name),
			Weapon:   strings.TrimSpace(h.Weapon),
			Assist:   strings.TrimSpace(h.Assist),
			Special:  strings.TrimSpace(h.Special),
			PassiveA: strings.TrimSpace(h.PassiveA),
			PassiveB: strings.TrimSpace(h.PassiveB),
			PassiveC: strings.TrimSpace(h.PassiveC),
			PassiveS: strings.TrimSpace(h.PassiveS),
			Asset:    strings.ToLower(strings.TrimSpace(h.Asset)),
			Flaw:     strings.ToLower(strings.TrimSpace(h.Flaw)),
			Merges:   merges,
			Rarity:   engine.DefaultRarity,
		})
	}
	return out
}

// Options configures a Service
type Options struct {
	Store  Store
	Logger *zap.Logger
}

// Service validates and stores rosters per participant
type Service struct {
	validator engine.Validator
	store     Store
	logger    *zap.Logger
}

// NewService creates a team service. A nil store defaults to a MemoryStore.
func NewService(validator engine.Validator, opts Options) *Service {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{validator: validator, store: opts.Store, logger: opts.Logger}
}

// SubmitTeam normalizes and validates a roster and stores it for participant.
// A refused roster returns *RejectedError and leaves any stored roster untouched.
func (s *Service) SubmitTeam(ctx context.Context, participant string, roster Roster) ([]engine.HeroBuild, error) {
	heroes, err := s.ValidateTeam(ctx, participant, roster)
	if err != nil {
		return nil, err
	}
	s.StoreTeam(participant, heroes)
	return heroes, nil
}

// ValidateTeam normalizes and validates a roster without storing it
func (s *Service) ValidateTeam(ctx context.Context, participant string, roster Roster) ([]engine.HeroBuild, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if participant == "" {
		return nil, ErrMissingParticipant
	}

	heroes := Normalize(roster)
	problems, err := s.validate(heroes)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		s.logger.Debug("team rejected",
			zap.String("participant", participant),
			zap.Int("errors", len(problems)))
		return nil, &RejectedError{Errors: problems}
	}
	return heroes, nil
}

// StoreTeam saves heroes already accepted by ValidateTeam
func (s *Service) StoreTeam(participant string, heroes []engine.HeroBuild) {
	s.store.Save(participant, heroes)
	s.logger.Info("team stored",
		zap.String("participant", participant),
		zap.Int("heroes", len(heroes)))
}

// RetrieveTeam returns the stored roster of participant. Reading does not consume it.
func (s *Service) RetrieveTeam(participant string) ([]engine.HeroBuild, bool) {
	return s.store.Load(participant)
}

func (s *Service) validate(heroes []engine.HeroBuild) (problems []engine.ValidationError, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrValidatorFault, r)
		}
	}()
	return s.validator.ValidateTeam(heroes), nil
}
