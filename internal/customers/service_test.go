package customers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/pkg/db/models"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
	"github.com/danuartha/sewakit-backend/pkg/pagination"
)

func setupCustomersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:customers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func newCustomersService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestGetByUser(t *testing.T) {
	t.Parallel()

	db := setupCustomersTestDB(t)
	svc := newCustomersService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	customer := &models.Customer{ID: uuid.New(), UserID: userID, Name: "Siti"}
	require.NoError(t, db.Create(customer).Error)

	loaded, err := svc.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, customer.ID, loaded.ID)

	_, err = svc.GetByUser(ctx, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	db := setupCustomersTestDB(t)
	svc := newCustomersService(t, db)
	ctx := context.Background()

	customer := &models.Customer{ID: uuid.New(), UserID: uuid.New(), Name: "Siti"}
	require.NoError(t, db.Create(customer).Error)

	phone := "0812345678"
	updated, err := svc.UpdateProfile(ctx, customer.ID, UpdateProfileInput{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, "Siti", updated.Name)

	empty := " "
	_, err = svc.UpdateProfile(ctx, customer.ID, UpdateProfileInput{Name: &empty})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.UpdateProfile(ctx, customer.ID, UpdateProfileInput{})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestListCustomersSearch(t *testing.T) {
	t.Parallel()

	db := setupCustomersTestDB(t)
	svc := newCustomersService(t, db)
	ctx := context.Background()

	for _, name := range []string{"Budi Santoso", "Siti Aminah", "Budi Rahman"} {
		require.NoError(t, db.Create(&models.Customer{ID: uuid.New(), UserID: uuid.New(), Name: name}).Error)
	}

	list, err := svc.List(ctx, pagination.Params{}, "Budi")
	require.NoError(t, err)
	assert.Len(t, list.Customers, 2)
}
