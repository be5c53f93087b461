// SPDX-License-Identifier: GPL-3.0-or-later

package netline

import "time"

// Config holds common configuration for netline operations.
//
// Pass this to [NewLine] to pre-wire dependencies. All fields have sensible
// defaults set by [NewConfig].
type Config struct {
	// ErrClassifier classifies errors for structured logging and for the
	// errClass carried by [*IOError].
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// ConnectTimeout bounds [*Line.ConnectClient]'s non-blocking connect.
	//
	// Set by [NewConfig] to 100ms, matching the original library default.
	ConnectTimeout time.Duration

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		ErrClassifier:  DefaultErrClassifier,
		ConnectTimeout: 100 * time.Millisecond,
		TimeNow:        time.Now,
	}
}
