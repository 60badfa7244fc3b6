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
	"context"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lukasdietrich/mailtrack/internal/database"
	"github.com/lukasdietrich/mailtrack/internal/smtp"
	"github.com/lukasdietrich/mailtrack/internal/storage"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, cfg smtp.Config) smtp.Outcome {
	args := m.Called(cfg.To, cfg.Message)
	return args.Get(0).(smtp.Outcome)
}

type staticLocator string

func (l staticLocator) Locate(context.Context, string) string {
	return string(l)
}

type staticIDGenerator string

func (g staticIDGenerator) GenerateID() (string, error) {
	return string(g), nil
}

var (
	delivered = smtp.Outcome{Stage: smtp.StageQuit}
	rejected  = smtp.Outcome{
		Stage: smtp.StageRcptTo,
		Err: &smtp.ReplyError{
			Stage: smtp.StageRcptTo,
			Code:  550,
			Line:  "550 no such user",
		},
	}
)

// baseTrackingTestSuite provides an in-memory database and filesystem as
// well as a mocked smtp sender.
type baseTrackingTestSuite struct {
	suite.Suite

	ctx        context.Context
	fs         afero.Fs
	conn       database.Conn
	deliveries database.DeliveryDao
	logbook    *storage.Logbook
	sender     *mockSender
	notifier   *Notifier
}

func (s *baseTrackingTestSuite) SetupTest() {
	viper.Set("storage.database.filename", ":memory:")
	viper.Set("storage.database.journalmode", "memory")
	viper.Set("storage.logs.foldername", "logs")

	viper.Set("smtp.host", "mail.example.com")
	viper.Set("smtp.port", 465)
	viper.Set("smtp.username", "telemetry@example.com")
	viper.Set("smtp.password", "secret")

	viper.Set("notify.from", "telemetry@example.com")
	viper.Set("notify.recipients", []string{"first@example.com", "second@example.com"})
	viper.Set("notify.appname", "MVC Calculator")
	viper.Set("notify.timezone", "America/Bogota")
	viper.Set("admin.passwordhash", "")

	conn, err := database.OpenConnection()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.fs = afero.NewMemMapFs()
	s.conn = conn
	s.deliveries = database.NewDeliveryDao()

	s.logbook, err = storage.NewLogbook(s.fs)
	s.Require().NoError(err)

	s.sender = new(mockSender)
	s.notifier = NewNotifier(s.sender, s.conn, s.deliveries)
	s.notifier.now = func() time.Time { return time.Unix(1595764800, 0) }
}

func (s *baseTrackingTestSuite) TearDownTest() {
	s.Assert().NoError(s.conn.Close())
}

func (s *baseTrackingTestSuite) readLog(name string) string {
	content, err := afero.ReadFile(s.fs, "logs/"+name)
	if err != nil {
		return ""
	}

	return string(content)
}
