package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	apperrors "github.com/wfunc/vending-kiosk/internal/errors"
	"github.com/wfunc/vending-kiosk/internal/models"
)

// JournalTestSuite 流水仓储测试套件
type JournalTestSuite struct {
	suite.Suite
	db      *gorm.DB
	journal *Journal
	base    time.Time
}

func (suite *JournalTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.journal = NewJournal(suite.db, nil)
	suite.base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (suite *JournalTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

func (suite *JournalTestSuite) sale(name string, method models.PayMethod, price, change int, at time.Duration) *models.Sale {
	s := &models.Sale{
		ItemName: name,
		Method:   method,
		Price:    price,
		Change:   change,
		SoldAt:   suite.base.Add(at),
	}
	if method == models.PayMethodCash {
		s.Tendered = price + change
	}
	suite.Require().NoError(suite.journal.RecordSale(context.Background(), s))
	return s
}

// TestRecordSale 写入时生成交易号
func (suite *JournalTestSuite) TestRecordSale() {
	s := suite.sale("可乐", models.PayMethodCash, 2000, 500, 0)
	assert.NotZero(suite.T(), s.ID)
	assert.Len(suite.T(), s.TxnID, 36)

	found, err := suite.journal.Sales().FindByTxnID(context.Background(), s.TxnID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), "可乐", found.ItemName)
	assert.Equal(suite.T(), 2500, found.Tendered)
	assert.Equal(suite.T(), 500, found.Change)
}

func (suite *JournalTestSuite) TestFindByTxnIDNotFound() {
	_, err := suite.journal.Sales().FindByTxnID(context.Background(), "missing")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrNotFound))
}

// TestListAndFilter 倒序分页和过滤
func (suite *JournalTestSuite) TestListAndFilter() {
	suite.sale("可乐", models.PayMethodCash, 2000, 0, time.Minute)
	suite.sale("雪碧", models.PayMethodCard, 2000, 0, 2*time.Minute)
	suite.sale("红茶", models.PayMethodCash, 1500, 500, 3*time.Minute)

	page := NewPagination(1, 2)
	sales, err := suite.journal.Sales().List(context.Background(), SaleFilter{}, page)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(3), page.Total)
	suite.Require().Len(sales, 2)
	assert.Equal(suite.T(), "红茶", sales[0].ItemName)
	assert.Equal(suite.T(), "雪碧", sales[1].ItemName)

	cash, err := suite.journal.Sales().List(context.Background(), SaleFilter{Method: models.PayMethodCash}, nil)
	suite.Require().NoError(err)
	assert.Len(suite.T(), cash, 2)

	since := suite.base.Add(90 * time.Second)
	recent, err := suite.journal.Sales().List(context.Background(), SaleFilter{Since: &since}, nil)
	suite.Require().NoError(err)
	assert.Len(suite.T(), recent, 2)
}

func (suite *JournalTestSuite) TestSummary() {
	suite.sale("可乐", models.PayMethodCash, 2000, 500, 0)
	suite.sale("雪碧", models.PayMethodCard, 2000, 0, time.Minute)
	suite.sale("红茶", models.PayMethodCash, 1500, 8500, 2*time.Minute)

	sum, err := suite.journal.Sales().Summary(context.Background(), SaleFilter{})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(3), sum.Count)
	assert.Equal(suite.T(), int64(5500), sum.Revenue)
	assert.Equal(suite.T(), int64(2), sum.CashCount)
	assert.Equal(suite.T(), int64(1), sum.CardCount)
	assert.Equal(suite.T(), int64(9000), sum.TotalChange)

	empty, err := suite.journal.Sales().Summary(context.Background(), SaleFilter{Method: "none"})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(0), empty.Count)
	assert.Equal(suite.T(), int64(0), empty.Revenue)
}

func (suite *JournalTestSuite) TestAdminEvents() {
	ctx := context.Background()
	idx := 4
	suite.Require().NoError(suite.journal.RecordAdminEvent(ctx, &models.AdminEvent{Kind: models.AdminEventTopUp, Amount: 5000}))
	suite.Require().NoError(suite.journal.RecordAdminEvent(ctx, &models.AdminEvent{
		Kind: models.AdminEventRestock, ItemIndex: &idx, ItemName: "苏打水", Amount: 10,
		Metadata: models.JSONData{"stock_after": 10},
	}))
	suite.Require().NoError(suite.journal.RecordAdminEvent(ctx, &models.AdminEvent{Kind: models.AdminEventAuthFailed}))

	n, err := suite.journal.AdminEvents().CountByKind(ctx, models.AdminEventRestock)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), n)

	page := NewPagination(1, 10)
	all, err := suite.journal.AdminEvents().List(ctx, "", page)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(3), page.Total)
	assert.Len(suite.T(), all, 3)

	restocks, err := suite.journal.AdminEvents().List(ctx, models.AdminEventRestock, nil)
	suite.Require().NoError(err)
	suite.Require().Len(restocks, 1)
	assert.Equal(suite.T(), 4, *restocks[0].ItemIndex)
	assert.EqualValues(suite.T(), 10, restocks[0].Metadata["stock_after"])
}

func TestJournalTestSuite(t *testing.T) {
	suite.Run(t, new(JournalTestSuite))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p = NewPagination(3, 500)
	assert.Equal(t, 100, p.PageSize)
	assert.Equal(t, 200, p.Offset())
}
