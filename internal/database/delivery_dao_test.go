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

package database

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lukasdietrich/mailtrack/internal/models"
)

func TestDeliveryDaoTestSuite(t *testing.T) {
	suite.Run(t, new(DeliveryDaoTestSuite))
}

type DeliveryDaoTestSuite struct {
	baseDatabaseTestSuite

	deliveryDao DeliveryDao
}

func (s *DeliveryDaoTestSuite) SetupSuite() {
	s.deliveryDao = NewDeliveryDao()
}

func (s *DeliveryDaoTestSuite) TestInsert() {
	delivery := models.DeliveryEntity{
		CreatedAt:  1337,
		Filename:   "setup.exe",
		Recipient:  s.mustParseAddress("owner@example.com"),
		Delivered:  false,
		Stage:      "rcpt-to",
		Code:       sql.NullInt64{Int64: 550, Valid: true},
		Diagnostic: "smtp: RCPT TO failed: 550 no such user",
	}

	s.Assert().Zero(delivery.ID)
	s.Assert().NoError(s.deliveryDao.Insert(s.ctx, s.conn, &delivery))
	s.Assert().NotZero(delivery.ID)

	s.assertQuery(
		`
			select "id", "created_at", "filename", "recipient", "stage", "code", "diagnostic"
			from "deliveries" ;
		`,
		[]string{"1", "1337", "setup.exe", "owner@example.com", "rcpt-to", "550",
			"smtp: RCPT TO failed: 550 no such user"})
}

func (s *DeliveryDaoTestSuite) TestFindRecent() {
	s.requireExec(
		`
			insert into "deliveries"
				( "id", "created_at", "filename", "recipient", "delivered", "stage", "code", "diagnostic" )
			values
				( 1, 100, 'a.exe', 'one@example.com', 1, 'quit', null, 'message delivered' ) ,
				( 2, 300, 'b.exe', 'two@example.com', 0, 'auth-pass', 535, 'authentication failed' ) ,
				( 3, 200, 'c.exe', 'three@example.com', 1, 'quit', null, 'message delivered' ) ;
		`)

	deliveries, err := s.deliveryDao.FindRecent(s.ctx, s.conn, 2)
	s.Require().NoError(err)
	s.Require().Len(deliveries, 2)

	s.Assert().Equal(int64(2), deliveries[0].ID)
	s.Assert().Equal("two@example.com", deliveries[0].Recipient.String())
	s.Assert().False(deliveries[0].Delivered)
	s.Assert().Equal(sql.NullInt64{Int64: 535, Valid: true}, deliveries[0].Code)

	s.Assert().Equal(int64(3), deliveries[1].ID)
	s.Assert().True(deliveries[1].Delivered)
	s.Assert().False(deliveries[1].Code.Valid)
}

func (s *DeliveryDaoTestSuite) TestDeleteBefore() {
	s.requireExec(
		`
			insert into "deliveries"
				( "id", "created_at", "filename", "recipient", "delivered", "stage", "diagnostic" )
			values
				( 1, 100, 'a.exe', 'one@example.com', 1, 'quit', 'message delivered' ) ,
				( 2, 300, 'b.exe', 'two@example.com', 1, 'quit', 'message delivered' ) ;
		`)

	n, err := s.deliveryDao.DeleteBefore(s.ctx, s.conn, 200)
	s.Require().NoError(err)
	s.Assert().Equal(int64(1), n)

	s.assertQuery(`select "id" from "deliveries" ;`, []string{"2"})
}
