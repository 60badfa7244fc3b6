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

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type fieldOrigin struct{}
type fieldSession struct{}
type fieldRequest struct{}
type fieldStage struct{}

// WithOrigin adds the origin of processing to the context.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, fieldOrigin{}, origin)
}

// WithSession adds the identifier of an smtp session to the context.
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, fieldSession{}, session)
}

// WithRequest adds the identifier of an http request to the context.
func WithRequest(ctx context.Context, request string) context.Context {
	return context.WithValue(ctx, fieldRequest{}, request)
}

// WithStage adds the current protocol stage to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, fieldStage{}, stage)
}

// appendContextFields adds defined fields in the context to the log event.
func appendContextFields(ctx context.Context, event *zerolog.Event) *zerolog.Event {
	if origin, ok := ctx.Value(fieldOrigin{}).(string); ok {
		event.Str("origin", origin)
	}

	if request, ok := ctx.Value(fieldRequest{}).(string); ok {
		event.Str("request", request)
	}

	if session, ok := ctx.Value(fieldSession{}).(string); ok {
		event.Str("session", session)
	}

	if stage, ok := ctx.Value(fieldStage{}).(string); ok {
		event.Str("stage", stage)
	}

	return event
}
