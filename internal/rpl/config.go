package rpl

import (
	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/validate"
)

// type check
var _ validate.Interface = (*InstanceConfig)(nil)

// Validate implements the [validate.Interface] interface for
// *InstanceConfig, following the teacher's convention of collecting
// every field error with [errors.Join] rather than stopping at the
// first one (see dhcpsvc/config.go's Validate).
func (c *InstanceConfig) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	var errs []error

	if c.OF == nil {
		errs = append(errs, errors.Error("no value for OF"))
	}

	switch c.MOP {
	case MOPNoDownwardRoutes, MOPNonStoring, MOPStoring, MOPStoringMulticast:
		// Valid.
	default:
		errs = append(errs, errors.Annotate(errUnsupportedMOP, "MOP: %w"))
	}

	if c.DIOIntervalMin == 0 {
		errs = append(errs, errors.Error("DIOIntervalMin: must be positive"))
	}

	errs = validate.Append(errs, "DAOMaxRetransmissions", validate.NotNegative(c.DAOMaxRetransmissions))
	errs = validate.Append(errs, "DAORetransmissionTimeout", validate.NotNegative(c.DAORetransmissionTimeout))

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Config is the top-level, multi-instance configuration consumed by
// [Engine]'s caller (spec.md section 6, "Tunables"; never parsed by the
// core itself — `cmd/rpld` owns YAML decoding).
type Config struct {
	Instances []InstanceConfig
}

// type check
var _ validate.Interface = (*Config)(nil)

// Validate implements the [validate.Interface] interface for *Config.
func (c *Config) Validate() (err error) {
	if c == nil {
		return errors.ErrNoValue
	}

	if len(c.Instances) == 0 {
		return errors.Error("Instances: no value")
	}

	var errs []error
	seen := map[uint8]bool{}
	for i := range c.Instances {
		inst := &c.Instances[i]
		if seen[inst.ID] {
			errs = append(errs, errors.Error("duplicate instance id"))
		}
		seen[inst.ID] = true

		errs = validate.Append(errs, "Instances", inst.Validate())
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
