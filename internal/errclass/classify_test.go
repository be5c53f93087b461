//
// SPDX-License-Identifier: GPL-3.0-or-later
//

package errclass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	assert.Equal(t, "", New(nil))
	assert.Equal(t, ETIMEDOUT, New(context.DeadlineExceeded))
	assert.Equal(t, EGENERIC, New(errors.New("unknown error")))
	assert.Equal(t, ECONNRESET, New(errECONNRESET))
	assert.Equal(t, ECONNREFUSED, New(errECONNREFUSED))
}
