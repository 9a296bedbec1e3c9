package store

import (
	"fmt"
	"time"

	"github.com/ephyr-go/restreamer/internal/domain/restream"
)

// tuneTarget resolves an Output or, if mixinID is non-empty, one of its
// Mixins, returning pointers to the fields shared by tune_volume,
// tune_delay and tune_sidechain.
func (s *Store) tuneTarget(draft *State, restreamID, outputID, mixinID restream.ID) (*restream.Output, *restream.Mixin, Result) {
	r := FindRestream(draft, restreamID)
	if r == nil {
		return nil, nil, NotFound
	}
	o := FindOutput(r, outputID)
	if o == nil {
		return nil, nil, NotFound
	}
	if mixinID.Empty() {
		return o, nil, Applied
	}
	m := FindMixin(o, mixinID)
	if m == nil {
		return nil, nil, NotFound
	}
	return o, m, Applied
}

// TuneVolume implements tune_volume: level in [0, MaxVolumeLevel].
func (s *Store) TuneVolume(restreamID, outputID, mixinID restream.ID, level int, muted bool) (Result, error) {
	if err := restream.ValidateVolume(level); err != nil {
		return NoChange, fmt.Errorf("level: %w", err)
	}
	res, _ := s.commit(func(draft *State) (Result, error) {
		o, m, r := s.tuneTarget(draft, restreamID, outputID, mixinID)
		if r != Applied {
			return r, nil
		}
		v := restream.Volume{Level: uint16(level), Muted: muted}
		if m != nil {
			if m.Volume == v {
				return NoChange, nil
			}
			m.Volume = v
			return Applied, nil
		}
		if o.Volume == v {
			return NoChange, nil
		}
		o.Volume = v
		return Applied, nil
	})
	return res, nil
}

// TuneDelay implements tune_delay: mixin-only, [0, MaxMixinDelay].
func (s *Store) TuneDelay(restreamID, outputID, mixinID restream.ID, delay time.Duration) (Result, error) {
	if delay < 0 || delay > restream.MaxMixinDelay {
		return NoChange, fmt.Errorf("delay must be between 0 and %s", restream.MaxMixinDelay)
	}
	if mixinID.Empty() {
		return NoChange, fmt.Errorf("mixin id required")
	}
	res, _ := s.commit(func(draft *State) (Result, error) {
		_, m, r := s.tuneTarget(draft, restreamID, outputID, mixinID)
		if r != Applied {
			return r, nil
		}
		if m.Delay == delay {
			return NoChange, nil
		}
		m.Delay = delay
		return Applied, nil
	})
	return res, nil
}

// TuneSidechain implements tune_sidechain: mixin-only.
func (s *Store) TuneSidechain(restreamID, outputID, mixinID restream.ID, sidechain bool) (Result, error) {
	if mixinID.Empty() {
		return NoChange, fmt.Errorf("mixin id required")
	}
	res, _ := s.commit(func(draft *State) (Result, error) {
		_, m, r := s.tuneTarget(draft, restreamID, outputID, mixinID)
		if r != Applied {
			return r, nil
		}
		if m.Sidechain == sidechain {
			return NoChange, nil
		}
		m.Sidechain = sidechain
		return Applied, nil
	})
	return res, nil
}
