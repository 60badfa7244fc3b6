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
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lukasdietrich/mailtrack/internal/database"
	"github.com/lukasdietrich/mailtrack/internal/models"
)

type mockConn struct {
	database.Conn
	mock.Mock
}

func (m *mockConn) Begin(ctx context.Context) (database.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(database.Tx)
	return tx, args.Error(1)
}

type mockTx struct {
	database.Tx
	mock.Mock
}

func (m *mockTx) Commit() error {
	return m.Called().Error(0)
}

func (m *mockTx) Rollback() error {
	return m.Called().Error(0)
}

type mockDeliveryDao struct {
	mock.Mock
}

func (m *mockDeliveryDao) Insert(ctx context.Context, q database.Queryer, delivery *models.DeliveryEntity) error {
	return m.Called(ctx, q, delivery).Error(0)
}

func (m *mockDeliveryDao) FindRecent(ctx context.Context, q database.Queryer, limit int) ([]models.DeliveryEntity, error) {
	args := m.Called(ctx, q, limit)
	deliveries, _ := args.Get(0).([]models.DeliveryEntity)
	return deliveries, args.Error(1)
}

func (m *mockDeliveryDao) DeleteBefore(ctx context.Context, q database.Queryer, before int64) (int64, error) {
	args := m.Called(ctx, q, before)
	return args.Get(0).(int64), args.Error(1)
}

func TestCleanerTestSuite(t *testing.T) {
	suite.Run(t, new(CleanerTestSuite))
}

type CleanerTestSuite struct {
	suite.Suite

	conn       *mockConn
	tx         *mockTx
	deliveries *mockDeliveryDao

	cleaner *Cleaner
}

func (s *CleanerTestSuite) SetupTest() {
	viper.Set("journal.retention", "24h")

	s.conn = new(mockConn)
	s.tx = new(mockTx)
	s.deliveries = new(mockDeliveryDao)

	s.cleaner = NewCleaner(s.conn, s.deliveries)
	s.cleaner.now = func() time.Time { return time.Unix(100000, 0) }
}

func (s *CleanerTestSuite) TearDownTest() {
	mock.AssertExpectationsForObjects(s.T(),
		s.conn,
		s.tx,
		s.deliveries)
}

func (s *CleanerTestSuite) TestClean() {
	s.conn.On("Begin", mock.Anything).Return(s.tx, nil)
	s.tx.On("Rollback").Return(nil)
	s.tx.On("Commit").Return(nil)
	s.deliveries.On("DeleteBefore", mock.Anything, s.tx, int64(100000-24*60*60)).Return(int64(3), nil)

	s.Assert().NoError(s.cleaner.Clean(context.TODO()))
}

func (s *CleanerTestSuite) TestClean_disabled() {
	viper.Set("journal.retention", "0s")
	s.Assert().NoError(s.cleaner.Clean(context.TODO()))
}

func (s *CleanerTestSuite) TestClean_beginTxError() {
	s.conn.On("Begin", mock.Anything).Return(nil, errors.New("err1"))
	s.Assert().EqualError(s.cleaner.Clean(context.TODO()), "err1")
}

func (s *CleanerTestSuite) TestClean_deleteError() {
	s.conn.On("Begin", mock.Anything).Return(s.tx, nil)
	s.tx.On("Rollback").Return(nil)
	s.deliveries.On("DeleteBefore", mock.Anything, s.tx, mock.Anything).Return(int64(0), errors.New("err2"))

	s.Assert().EqualError(s.cleaner.Clean(context.TODO()), "err2")
}

func (s *CleanerTestSuite) TestClean_commitError() {
	s.conn.On("Begin", mock.Anything).Return(s.tx, nil)
	s.tx.On("Rollback").Return(nil)
	s.tx.On("Commit").Return(errors.New("err3"))
	s.deliveries.On("DeleteBefore", mock.Anything, s.tx, mock.Anything).Return(int64(0), nil)

	s.Assert().EqualError(s.cleaner.Clean(context.TODO()), "err3")
}

func (s *CleanerTestSuite) TestRun_stopsWithContext() {
	viper.Set("journal.cleaninterval", "1h")

	s.conn.On("Begin", mock.Anything).Return(s.tx, nil).Once()
	s.tx.On("Rollback").Return(nil).Once()
	s.tx.On("Commit").Return(nil).Once()
	s.deliveries.On("DeleteBefore", mock.Anything, s.tx, mock.Anything).Return(int64(0), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.cleaner.Run(ctx)
}

func (s *CleanerTestSuite) TestStart_waitsForPrune() {
	viper.Set("journal.cleaninterval", "1h")

	started := make(chan struct{})
	release := make(chan struct{})

	s.conn.On("Begin", mock.Anything).Return(s.tx, nil).Once()
	s.tx.On("Rollback").Return(nil).Once()
	s.tx.On("Commit").Return(nil).Once()
	s.deliveries.On("DeleteBefore", mock.Anything, s.tx, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(int64(0), nil).
		Once()

	ctx, cancel := context.WithCancel(context.Background())
	wait := s.cleaner.Start(ctx)

	<-started
	cancel()

	stopped := make(chan struct{})
	go func() {
		wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		s.FailNow("stopped while a prune was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-stopped:
	case <-time.After(time.Second):
		s.FailNow("cleaner did not stop")
	}
}
