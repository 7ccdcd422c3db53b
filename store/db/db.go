package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/blubb/internal/profile"
	"github.com/hrygo/blubb/store"
	"github.com/hrygo/blubb/store/db/postgres"
	"github.com/hrygo/blubb/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL is the production driver; SQLite serves development and testing.
// Both enforce the same schema, including the (room_id, user_id) uniqueness
// constraint the membership cache depends on.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
