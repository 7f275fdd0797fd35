// This file is part of GopherCell.
//
// GopherCell is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GopherCell is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GopherCell.  If not, see <https://www.gnu.org/licenses/>.

// Package environment provides the context for an emulated machine. More
// than one machine can exist at once and each has its own environment.
package environment

import (
	"github.com/google/uuid"
	"github.com/jetsetilly/gophercell/hardware/preferences"
	"github.com/jetsetilly/gophercell/notifications"
)

// Label is used to name the environment
type Label string

// MainEmulation is the label of the main emulation.
const MainEmulation = Label("")

// Environment is used to provide context for an emulation.
type Environment struct {
	Label Label

	// unique identifier for the machine instance
	ID uuid.UUID

	// the emulation preferences
	Prefs *preferences.Preferences

	// the receiver of notifications from the emulation
	Notifications notifications.Notify
}

// NewEnvironment is the preferred method of initialisation for the
// Environment type.
//
// A nil prefs argument means a new Preferences instance is created with
// default values. Providing a non-nil value allows the preferences of more
// than one machine to be synchronised. A nil notify argument means
// notifications are discarded.
func NewEnvironment(label Label, prefs *preferences.Preferences, notify notifications.Notify) *Environment {
	if prefs == nil {
		prefs = preferences.NewDefaultPreferences()
	}
	if notify == nil {
		notify = notifications.Discard{}
	}
	return &Environment{
		Label:         label,
		ID:            uuid.New(),
		Prefs:         prefs,
		Notifications: notify,
	}
}

// Notify sends a notification to the environment's receiver. Errors from the
// receiver are ignored; the emulation never depends on a notification being
// delivered.
func (env *Environment) Notify(notice notifications.Notice, data interface{}) {
	_ = env.Notifications.Notify(notice, data)
}

// IsMainEmulation returns true if the environment is intended for the main
// emulation in the system
func (env *Environment) IsMainEmulation() bool {
	return env.Label == MainEmulation
}

// AllowLogging implements the logger.Permission interface. Only the main
// emulation is allowed to log.
func (env *Environment) AllowLogging() bool {
	return env.IsMainEmulation()
}
