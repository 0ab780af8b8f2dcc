package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/taipei-day-trip/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs("Ann", "ann@example.com", "hash").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := NewUserRepo(db).Create(context.Background(), " Ann ", " Ann@Example.com", "hash")
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("err = %v, want ErrEmailExists", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingUpsertMissingAttraction(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO booking").
		WithArgs(uint64(7), uint64(999), "2030-01-01", "morning", 2000).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	err := NewBookingRepo(db).Upsert(context.Background(), model.Booking{
		UserID: 7, AttractionID: 999, Date: "2030-01-01", TimeSlot: "morning", Price: 2000,
	})
	if !errors.Is(err, ErrMissingReference) {
		t.Fatalf("err = %v, want ErrMissingReference", err)
	}
}

func TestBookingGetViewNone(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM booking b").WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	v, err := NewBookingRepo(db).GetView(context.Background(), 7)
	if err != nil || v != nil {
		t.Fatalf("GetView = %+v, %v; want nil, nil", v, err)
	}
}

func TestBookingGetView(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM booking b").WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "address", "image", "date", "time", "price"}).
			AddRow(10, "Beitou", "Taipei", "http://img/1.jpg", "2030-01-01", "afternoon", 2500))

	v, err := NewBookingRepo(db).GetView(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	if v.Attraction.ID != 10 || v.Attraction.Image != "http://img/1.jpg" || v.Time != "afternoon" || v.Price != 2500 {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestOrderCreateUnpaidCollision(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO orders").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry for key 'uq_orders_number'"})

	o := &model.Order{Number: "202501011200001234", UserID: 1, AttractionID: 2}
	if err := NewOrderRepo(db).CreateUnpaid(context.Background(), o); !errors.Is(err, ErrOrderNumberTaken) {
		t.Fatalf("err = %v, want ErrOrderNumberTaken", err)
	}
}

func TestOrderCreateUnpaidSetsID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(42, 1))

	o := &model.Order{Number: "202501011200001234", UserID: 1, AttractionID: 2}
	if err := NewOrderRepo(db).CreateUnpaid(context.Background(), o); err != nil {
		t.Fatalf("CreateUnpaid: %v", err)
	}
	if o.ID != 42 || o.Status != model.OrderUnpaid {
		t.Fatalf("unexpected order %+v", o)
	}
}

func TestOrderMarkPaidTxIsOneWay(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status = 'PAID'").WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := NewOrderRepo(db).MarkPaidTx(context.Background(), tx, 42); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	_ = tx.Rollback()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderGetViewForUser(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"order_number", "price", "id", "name", "address", "image", "date", "time",
		"contact_name", "contact_email", "contact_phone", "status"}
	mock.ExpectQuery("FROM orders o").WithArgs("202501011200001234", uint64(1)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("202501011200001234", 2000, 10, "Beitou", "Taipei",
			"http://img/1.jpg", "2030-01-01", "morning", "Ann", "ann@example.com", "0912345678", "PAID"))

	v, err := NewOrderRepo(db).GetViewForUser(context.Background(), "202501011200001234", 1)
	if err != nil {
		t.Fatalf("GetViewForUser: %v", err)
	}
	if v.Status != 1 || v.Contact.Phone != "0912345678" || v.Trip.Attraction.Name != "Beitou" {
		t.Fatalf("unexpected view %+v", v)
	}
}

func TestOrderGetViewForOtherUser(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM orders o").WithArgs("202501011200001234", uint64(2)).
		WillReturnError(sql.ErrNoRows)

	v, err := NewOrderRepo(db).GetViewForUser(context.Background(), "202501011200001234", 2)
	if err != nil || v != nil {
		t.Fatalf("GetViewForUser = %+v, %v; want nil, nil", v, err)
	}
}

func TestAttractionListNextPage(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT COUNT").WithArgs("%北投%", "北投").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(13))
	cols := []string{"id", "name", "category", "description", "address", "transport", "mrt", "lat", "lng", "images"}
	rows := sqlmock.NewRows(cols)
	for i := 1; i <= AttractionPageSize; i++ {
		rows.AddRow(i, "spot", "cat", "desc", "addr", "bus", "北投", 25.1, 121.5, "http://a.jpg,http://b.jpg")
	}
	mock.ExpectQuery("FROM attractions a").WithArgs("%北投%", "北投", AttractionPageSize, 0).WillReturnRows(rows)

	page, err := NewAttractionRepo(db).List(context.Background(), 0, " 北投 ")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Data) != AttractionPageSize || page.NextPage == nil || *page.NextPage != 1 {
		t.Fatalf("unexpected page: len=%d next=%v", len(page.Data), page.NextPage)
	}
	if len(page.Data[0].Images) != 2 || page.Data[0].MRT == nil {
		t.Fatalf("unexpected attraction %+v", page.Data[0])
	}
}

func TestAttractionLastPage(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(13))
	cols := []string{"id", "name", "category", "description", "address", "transport", "mrt", "lat", "lng", "images"}
	mock.ExpectQuery("FROM attractions a").WithArgs(AttractionPageSize, AttractionPageSize).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(13, "spot", "cat", "desc", "addr", "bus", nil, 25.1, 121.5, nil))

	page, err := NewAttractionRepo(db).List(context.Background(), 1, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.NextPage != nil || len(page.Data) != 1 || len(page.Data[0].Images) != 0 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestAttractionGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("WHERE a.id = ").WithArgs(uint64(404)).WillReturnError(sql.ErrNoRows)

	if _, err := NewAttractionRepo(db).GetByID(context.Background(), 404); !errors.Is(err, ErrAttractionNotFound) {
		t.Fatalf("err = %v, want ErrAttractionNotFound", err)
	}
}

func TestBookingUpsertTwiceUpdatesInPlace(t *testing.T) {
	db, mock := newMock(t)
	const upsert = `INSERT INTO booking (user_id, attraction_id, date, time, price)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE`
	mock.ExpectExec(regexp.QuoteMeta(upsert)).
		WithArgs(uint64(7), uint64(10), "2030-01-01", "morning", 2000).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// second call for the same user hits the same statement; MySQL reports
	// two affected rows when the existing row is updated.
	mock.ExpectExec(regexp.QuoteMeta(upsert) + `\s+attraction_id = VALUES\(attraction_id\),\s+date = VALUES\(date\),\s+time = VALUES\(time\),\s+price = VALUES\(price\)`).
		WithArgs(uint64(7), uint64(12), "2030-02-02", "afternoon", 2500).
		WillReturnResult(sqlmock.NewResult(0, 2))

	repo := NewBookingRepo(db)
	if err := repo.Upsert(context.Background(), model.Booking{
		UserID: 7, AttractionID: 10, Date: "2030-01-01", TimeSlot: "morning", Price: 2000,
	}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	if err := repo.Upsert(context.Background(), model.Booking{
		UserID: 7, AttractionID: 12, Date: "2030-02-02", TimeSlot: "afternoon", Price: 2500,
	}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAttractionReplaceAll(t *testing.T) {
	db, mock := newMock(t)
	mrt := "Zhongshan"
	list := []model.Attraction{
		{ID: 1, Name: "Xinbeitou", Category: "Hot Spring", Description: "d1", Address: "Beitou",
			Transport: "MRT", MRT: &mrt, Lat: 25.137, Lng: 121.506,
			Images: []string{"https://img/a.jpg", "https://img/b.png"}},
		{ID: 2, Name: "Dadaocheng", Category: "Historic", Description: "d2", Address: "Datong",
			Transport: "無資料", Lat: 25.056, Lng: 121.510},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO attractions .* ON DUPLICATE KEY UPDATE`).
		WithArgs(uint64(1), "Xinbeitou", "Hot Spring", "d1", "Beitou", "MRT", "Zhongshan", 25.137, 121.506).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM attraction_images").
		WithArgs(uint64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO attraction_images").
		WithArgs(uint64(1), "https://img/a.jpg").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attraction_images").
		WithArgs(uint64(1), "https://img/b.png").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(`INSERT INTO attractions .* ON DUPLICATE KEY UPDATE`).
		WithArgs(uint64(2), "Dadaocheng", "Historic", "d2", "Datong", "無資料", nil, 25.056, 121.510).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("DELETE FROM attraction_images").
		WithArgs(uint64(2)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := NewAttractionRepo(db).ReplaceAll(context.Background(), list); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAttractionReplaceAllRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attractions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM attraction_images").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO attraction_images").
		WillReturnError(errors.New("data too long"))
	mock.ExpectRollback()

	err := NewAttractionRepo(db).ReplaceAll(context.Background(), []model.Attraction{
		{ID: 5, Name: "Longshan", Images: []string{"https://img/x.jpg"}},
	})
	if err == nil || !strings.Contains(err.Error(), "attraction 5 (Longshan)") {
		t.Fatalf("err = %v, want wrapped insert error", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAttractionInsertTxAssignsID(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attractions").
		WithArgs(nil, "New", "", "", "", "", nil, 0.0, 0.0).
		WillReturnResult(sqlmock.NewResult(58, 1))
	mock.ExpectExec("DELETE FROM attraction_images").
		WithArgs(uint64(58)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	a := model.Attraction{Name: "New"}
	if err := NewAttractionRepo(db).InsertTx(context.Background(), tx, &a); err != nil {
		t.Fatalf("InsertTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if a.ID != 58 {
		t.Fatalf("id = %d, want 58", a.ID)
	}
}
