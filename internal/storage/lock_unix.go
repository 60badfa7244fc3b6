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

//go:build unix

package storage

import (
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

type fileDescriptor interface {
	Fd() uintptr
}

// lockFile acquires an exclusive advisory lock on files of the operating
// system. Other files are not locked.
func lockFile(f afero.File) (func(), error) {
	fd, ok := f.(fileDescriptor)
	if !ok {
		return func() {}, nil
	}

	if err := unix.Flock(int(fd.Fd()), unix.LOCK_EX); err != nil {
		return nil, err
	}

	return func() {
		unix.Flock(int(fd.Fd()), unix.LOCK_UN) // nolint:errcheck
	}, nil
}
