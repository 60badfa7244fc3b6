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

package tracking

import (
	"strings"
)

var sectionRule = strings.Repeat("━", 40)

// subject returns the subject of the notification mail.
func subject(appName string, d *Download) string {
	return appName + " Download: " + d.Filename
}

// body returns the plain text body of the notification mail.
func body(d *Download) string {
	var b strings.Builder

	b.WriteString("A file download has been detected:\n\n")

	section(&b, "FILE INFORMATION",
		"File: "+d.Filename,
		"Timestamp: "+d.Timestamp)
	b.WriteString("\n")

	section(&b, "CLIENT INFORMATION",
		"IP Address: "+d.IP,
		"Location: "+d.Location)
	b.WriteString("\n")

	section(&b, "BROWSER INFORMATION",
		"User Agent: "+d.UserAgent,
		"Referrer: "+d.Referrer,
		"Page URL: "+d.URL)

	return b.String()
}

func section(b *strings.Builder, title string, lines ...string) {
	b.WriteString(sectionRule + "\n")
	b.WriteString(title + "\n")
	b.WriteString(sectionRule + "\n")

	for _, line := range lines {
		b.WriteString(line + "\n")
	}
}
