// Copyright (C) 2020  Lukas Dietrich <lukas@lukasdietrich.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package smtp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukasdietrich/mailtrack/internal/models"
)

func TestStageNames(t *testing.T) {
	for stage, expected := range map[Stage]string{
		StageNone:      "none-yet",
		StageConnect:   "connect",
		StageGreeting:  "greeting",
		StageHello:     "hello",
		StageAuthStart: "auth-start",
		StageAuthUser:  "auth-user",
		StageAuthPass:  "auth-pass",
		StageMailFrom:  "mail-from",
		StageRcptTo:    "rcpt-to",
		StageDataStart: "data-start",
		StageDataBody:  "data-body",
		StageQuit:      "quit",
		StageUnknown:   "unknown",
		Stage(99):      "unknown",
	} {
		assert.Equal(t, expected, stage.String())
	}
}

func TestStageNext(t *testing.T) {
	assert.Equal(t, StageGreeting, StageConnect.next())
	assert.Equal(t, StageQuit, StageDataBody.next())
	assert.Equal(t, StageUnknown, StageQuit.next())
	assert.Equal(t, StageUnknown, StageUnknown.next())
}

func TestSessionStepsOrdered(t *testing.T) {
	from, err := models.Parse("a@example.com")
	require.NoError(t, err)

	cfg := Config{Host: "smtp.example.com"}
	s := newSession(context.TODO(), nil, &cfg)

	stage := StageConnect
	for _, st := range s.steps(from, from, nil) {
		assert.Equal(t, stage.next(), st.stage)
		stage = st.stage
	}

	assert.Equal(t, StageDataBody, stage)
}

func TestRunRejectsUnorderedSteps(t *testing.T) {
	cfg := Config{Host: "smtp.example.com"}
	s := newSession(context.TODO(), nil, &cfg)

	assert.Panics(t, func() {
		s.run([]step{{stage: StageHello}})
	})
}
