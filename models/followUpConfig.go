package models

import "fmt"

type FollowUpConfig struct {
	Required_Attempts int    `json:"requiredAttempts" yaml:"required_attempts"`
	Frequency         string `json:"frequency" yaml:"frequency"`
	Duration_In_Days  int    `json:"durationInDays" yaml:"duration_in_days"`
}

// FollowUpConfigTable maps a person type to its attempt plan. The New Convert
// entry doubles as the fallback for unrecognized person types.
type FollowUpConfigTable map[PersonType]FollowUpConfig

func DefaultFollowUpConfigs() FollowUpConfigTable {
	return FollowUpConfigTable{
		PersonTypeNewConvert:        {Required_Attempts: 8, Frequency: "2/week", Duration_In_Days: 28},
		PersonTypeAttendee:          {Required_Attempts: 4, Frequency: "2/week", Duration_In_Days: 14},
		PersonTypeMember:            {Required_Attempts: 3, Frequency: "1/week", Duration_In_Days: 21},
		PersonTypeUnregisteredGuest: {Required_Attempts: 6, Frequency: "2/week", Duration_In_Days: 21},
	}
}

// Lookup returns the configuration for personType, falling back to New Convert.
func (t FollowUpConfigTable) Lookup(personType PersonType) (FollowUpConfig, error) {
	if cfg, ok := t[personType]; ok {
		return cfg, cfg.validate(personType)
	}
	cfg, ok := t[PersonTypeNewConvert]
	if !ok {
		return FollowUpConfig{}, fmt.Errorf("%w: no entry for %q and no %q fallback", ErrInvalidConfig, personType, PersonTypeNewConvert)
	}
	return cfg, cfg.validate(PersonTypeNewConvert)
}

func (t FollowUpConfigTable) Validate() error {
	if _, ok := t[PersonTypeNewConvert]; !ok {
		return fmt.Errorf("%w: missing %q fallback entry", ErrInvalidConfig, PersonTypeNewConvert)
	}
	for personType, cfg := range t {
		if err := cfg.validate(personType); err != nil {
			return err
		}
	}
	return nil
}

func (c FollowUpConfig) validate(personType PersonType) error {
	if c.Required_Attempts <= 0 {
		return fmt.Errorf("%w: %q requires a positive attempt count", ErrInvalidConfig, personType)
	}
	if c.Duration_In_Days <= 0 {
		return fmt.Errorf("%w: %q requires a positive duration", ErrInvalidConfig, personType)
	}
	if c.Frequency == "" {
		return fmt.Errorf("%w: %q requires a frequency", ErrInvalidConfig, personType)
	}
	return nil
}
