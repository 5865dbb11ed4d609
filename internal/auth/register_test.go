package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/danuartha/sewakit-backend/pkg/config"
	"github.com/danuartha/sewakit-backend/pkg/db/models"
	"github.com/danuartha/sewakit-backend/pkg/enums"
	pkgerrors "github.com/danuartha/sewakit-backend/pkg/errors"
	"github.com/danuartha/sewakit-backend/pkg/security"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer',
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS customers (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  address TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newRegisterFixture(t *testing.T, db *gorm.DB) RegisterService {
	t.Helper()

	svc, err := NewRegisterService(RegisterServiceParams{
		Tx:             testTxRunner{db: db},
		PasswordConfig: config.PasswordConfig{},
	})
	require.NoError(t, err)
	return svc
}

func TestRegisterCreatesUserAndProfile(t *testing.T) {
	t.Parallel()

	db := setupAuthTestDB(t)
	svc := newRegisterFixture(t, db)

	phone := "081234567890"
	address := "Jl. Merdeka No. 1"
	err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Budi Santoso",
		Email:    "Budi@Example.com",
		Password: "kata-sandi-rahasia",
		Phone:    &phone,
		Address:  &address,
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "budi@example.com").Error)
	assert.Equal(t, enums.UserRoleCustomer, user.Role)

	valid, err := security.VerifyPassword("kata-sandi-rahasia", user.PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)

	var customer models.Customer
	require.NoError(t, db.First(&customer, "user_id = ?", user.ID).Error)
	assert.Equal(t, "Budi Santoso", customer.Name)
	assert.Equal(t, "081234567890", customer.Phone)
	assert.Equal(t, "Jl. Merdeka No. 1", customer.Address)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	t.Parallel()

	db := setupAuthTestDB(t)
	svc := newRegisterFixture(t, db)
	ctx := context.Background()

	req := RegisterRequest{Name: "Budi Santoso", Email: "budi@example.com", Password: "kata-sandi-rahasia"}
	require.NoError(t, svc.Register(ctx, req))

	err := svc.Register(ctx, req)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	db := setupAuthTestDB(t)
	svc := newRegisterFixture(t, db)
	ctx := context.Background()

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{name: "missing email", req: RegisterRequest{Name: "Budi", Password: "kata-sandi-rahasia"}},
		{name: "missing name", req: RegisterRequest{Email: "budi@example.com", Password: "kata-sandi-rahasia"}},
		{name: "short password", req: RegisterRequest{Name: "Budi", Email: "budi@example.com", Password: "pendek"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Register(ctx, tc.req)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}
