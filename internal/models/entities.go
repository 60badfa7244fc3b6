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

package models

import (
	"database/sql"
)

// DeliveryEntity is the entity for the "deliveries" table. Each row is the
// outcome of one smtp session.
type DeliveryEntity struct {
	ID         int64         `db:"id" json:"id"`
	CreatedAt  int64         `db:"created_at" json:"created_at"`
	Filename   string        `db:"filename" json:"filename"`
	Recipient  Address       `db:"recipient" json:"recipient"`
	Delivered  bool          `db:"delivered" json:"delivered"`
	Stage      string        `db:"stage" json:"stage"`
	Code       sql.NullInt64 `db:"code" json:"-"`
	Diagnostic string        `db:"diagnostic" json:"diagnostic"`
}
